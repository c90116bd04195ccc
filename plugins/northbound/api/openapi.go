package api

import (
	"net/http"
	"net/netip"
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/veesix-networks/netbridge/internal/lease"
	"github.com/veesix-networks/netbridge/pkg/version"
)

type route struct {
	method      string
	path        string
	tag         string
	summary     string
	operationID string
	params      []string
	request     any
	response    any
}

var routes = []route{
	{
		method: http.MethodPost, path: "/api/lease/{family}/{iface}/{op}", tag: "Lease",
		summary: "Run a lease operation (request, renew, stop or release)", operationID: "leaseOperation",
		params: []string{"family", "iface", "op"}, response: LeaseResponse{},
	},
	{
		method: http.MethodGet, path: "/api/lease/{family}/error", tag: "Lease",
		summary: "Get the last error recorded for a family", operationID: "leaseLastError",
		params: []string{"family"}, response: LastErrorResponse{},
	},
	{
		method: http.MethodGet, path: "/api/lease/sessions", tag: "Lease",
		summary: "List held leases", operationID: "leaseSessions",
		response: []lease.Session{},
	},
	{
		method: http.MethodGet, path: "/api/interface/{iface}/raflags", tag: "Lease",
		summary: "Get the IPv6 router advertisement flags of an interface", operationID: "raFlags",
		params: []string{"iface"}, response: RAFlagsResponse{},
	},
	{
		method: http.MethodGet, path: "/api/network/process", tag: "Network",
		summary: "Get the process and resolver network bindings", operationID: "getNetwork",
		response: NetworkResponse{},
	},
	{
		method: http.MethodPost, path: "/api/network/process", tag: "Network",
		summary: "Bind the process to a network", operationID: "bindProcess",
		request: NetworkRequest{}, response: BindResponse{},
	},
	{
		method: http.MethodPost, path: "/api/network/resolver", tag: "Network",
		summary: "Bind the resolver to a network", operationID: "bindResolver",
		request: NetworkRequest{}, response: BindResponse{},
	},
	{
		method: http.MethodPost, path: "/api/network/reset", tag: "Network",
		summary: "Destroy TCP connections using an interface's addresses", operationID: "resetConnections",
		request: ResetRequest{}, response: ResetResponse{},
	},
}

var pathParamDescriptions = map[string]string{
	"family": "Lease family: v4, v6 or v6-pd",
	"iface":  "Interface name",
	"op":     "request, renew, stop or release",
}

func buildOpenAPISpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "netbridge API",
			Description: "Lease exchange and network binding",
			Version:     version.API(),
		},
		Paths: &openapi3.Paths{},
		Tags: openapi3.Tags{
			{Name: "Lease", Description: "DHCP lease operations"},
			{Name: "Network", Description: "Network identity binding"},
		},
	}

	errorSchema := schemaFromType(reflect.TypeOf(ErrorResponse{}))

	for _, rt := range routes {
		op := &openapi3.Operation{
			Tags:        []string{rt.tag},
			Summary:     rt.summary,
			OperationID: rt.operationID,
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: ptr("Success"),
						Content:     openapi3.NewContentWithJSONSchemaRef(schemaFromType(reflect.TypeOf(rt.response))),
					},
				}),
				openapi3.WithStatus(400, &openapi3.ResponseRef{
					Value: &openapi3.Response{
						Description: ptr("Invalid request"),
						Content:     openapi3.NewContentWithJSONSchemaRef(errorSchema),
					},
				}),
			),
		}
		for _, p := range rt.params {
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:        p,
					In:          "path",
					Required:    true,
					Description: pathParamDescriptions[p],
					Schema:      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				},
			})
		}
		if rt.request != nil {
			op.RequestBody = &openapi3.RequestBodyRef{
				Value: &openapi3.RequestBody{
					Required: true,
					Content:  openapi3.NewContentWithJSONSchemaRef(schemaFromType(reflect.TypeOf(rt.request))),
				},
			}
		}

		item := spec.Paths.Value(rt.path)
		if item == nil {
			item = &openapi3.PathItem{}
		}
		item.SetOperation(rt.method, op)
		spec.Paths.Set(rt.path, item)
	}

	return spec
}

func (c *Component) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, buildOpenAPISpec())
}

func schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t == nil {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == reflect.TypeOf(time.Time{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}}
	}

	if t == reflect.TypeOf(netip.Addr{}) || t == reflect.TypeOf(netip.Prefix{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}

	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "byte"}}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: schemaFromType(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: schemaFromType(t.Elem())},
			},
		}

	case reflect.Struct:
		return structToSchema(t)

	case reflect.Interface:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
}

func structToSchema(t reflect.Type) *openapi3.SchemaRef {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := openapi3.Schemas{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitempty = true
				}
			}
		}

		properties[name] = schemaFromType(field.Type)
		if !omitempty {
			required = append(required, name)
		}
	}

	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: properties,
			Required:   required,
		},
	}
}

func ptr(s string) *string {
	return &s
}

// Package rrest validates HTTP traffic against an API contract.
//
// A contract written in RAML, OpenAPI 3 or Swagger 2.0 declares, for every
// route, the parameters it takes, the bodies it accepts and the responses it
// returns. rrest enforces those declarations on both sides of a handler:
// requests are negotiated, cast and validated before the handler runs, and
// the handler's output is checked against the declared response schema
// before it is written.
//
// # Overview
//
// The module is organized in layers, leaves first:
//
//   - rresterrors: the error taxonomy, with one typed error per failure category
//   - parameter: typed parameter descriptors with casting and constraint checks
//   - jsonschema, xsd: schema validators for JSON and XML bodies
//   - payload: body validators that tell malformed input from schema violations
//   - negotiate: Accept, Content-Type and protocol negotiation
//   - apispec: the format-independent route model, with raml, openapi and swagger adapters
//   - loader: reads documents from files or URLs and detects their format
//   - dispatch: the orchestrator that runs the pipeline in front of handlers
//   - muxprovider: binds dispatch routes to a gorilla/mux router
//   - config: dispatcher settings from .env files and the environment
//
// # Quick Start
//
// Load a contract, map its resources to handlers and serve it:
//
//	doc, err := loader.Load(ctx, "api/songs.raml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg := dispatch.NewRegistry()
//	reg.Add("Songs", dispatch.Controller{
//	    "getAction":  dispatch.HandlerFunc(listSongs),
//	    "postAction": dispatch.HandlerFunc(createSong),
//	})
//
//	d, err := dispatch.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := d.Mount(doc, reg); err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(http.ListenAndServe(":8080", d))
//
// A handler receives the typed parameter values and the decoded body:
//
//	func listSongs(ctx context.Context, req *dispatch.Request, resp *dispatch.Response) error {
//	    limit, _ := req.Param("limit") // int64 when declared as integer
//	    return resp.SetContent(store.List(ctx, limit))
//	}
//
// # Errors
//
// Rejections carry an ordered list of [rresterrors.Error] values and map to
// HTTP statuses:
//
//   - 400: malformed JSON or XML body
//   - 403: protocol not allowed
//   - 404, 405: no route for the path or method
//   - 406: no declared response type satisfies Accept
//   - 413: request body over the configured limit
//   - 415: Content-Type not declared
//   - 422: parameter or body schema violations, all reported at once
//   - 500: handler output violating its declared schema
//
// Registration defects, such as a route declaring two success statuses, are
// reported by [dispatch.Dispatcher.Register] as *rresterrors.ConfigError.
//
// # Command Line
//
// The rrest command lists the routes of a document, runs a single request
// through the pipeline, or serves a validating mock of the whole contract:
//
//	rrest routes --spec api.raml
//	rrest validate --spec api.raml -X POST -p /v1/songs -H 'Content-Type: application/json' -d song.json
//	rrest serve --spec api.raml --addr :8080 --cors
//
// # Version
//
// [Version], [Commit] and [BuildTime] report the build details set at
// release time; [UserAgent] is sent when fetching remote documents.
package rrest

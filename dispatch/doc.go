// Package dispatch validates HTTP requests against an API contract before
// they reach application handlers, and validates handler output on the way
// back.
//
// A [Dispatcher] holds the registered routes. Registration checks the route
// contract once: exactly one success status, at least one response content
// type, and a supported format for each. Every request then runs the same
// pipeline:
//
//  1. resolve the route from the method and path
//  2. negotiate the Accept header, the Content-Type and the protocol
//  3. cast and check every declared parameter
//  4. validate the body against the schema of its content type
//  5. hint the typed values back into the request context
//  6. call the handler and, when enabled, assert its output
//
// Negotiation failures stop the pipeline at once. Parameter failures are
// accumulated and reported together.
//
// # Usage
//
//	doc, err := loader.Load(ctx, "api.raml")
//	if err != nil {
//	    return err
//	}
//	reg := dispatch.NewRegistry()
//	reg.Add("Songs", dispatch.Controller{
//	    "getAction": dispatch.HandlerFunc(listSongs),
//	})
//	d, err := dispatch.New(dispatch.WithLogger(dispatch.NewZerologAdapter(log)))
//	if err != nil {
//	    return err
//	}
//	if _, err := d.Mount(doc, reg); err != nil {
//	    return err
//	}
//	http.ListenAndServe(":8080", d)
//
// # Transports
//
// A Dispatcher is an http.Handler on its own. To bind routes to an existing
// router instead, pass a [Provider] with [WithProvider]; the muxprovider
// package binds them to a gorilla/mux router.
package dispatch

// Package nicehtml loads NiceHTML fragments from a page and feeds them to a
// WebAssembly transpilation engine.
//
// A page declares fragments with script elements:
//
//	<script type="text/nicehtml" src="header.nh"></script>
//	<script type="text/nicehtml">
//	div
//	    "hello"
//	</script>
//
// # Architecture Overview
//
//	nicehtml/          Root package with Fragment, Result, Engine and Loader
//	├── page/          Fragment discovery in HTML documents
//	├── fetch/         Content resolution with cache-busting retrieval
//	├── engine/        wazero host for engine modules
//	├── wasm/          Core WASM binary encoder (reference engine)
//	├── orchestrator/  Session, join and ordered conversion
//	├── config/        YAML configuration and logging setup
//	├── state/         CLI environment carried in context
//	└── errors/        Structured error types
//
// # Quick Start
//
//	client := fetch.NewClient(fetch.ClientConfig{})
//	doc, err := page.Open(ctx, client, "index.html", page.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loader := engine.NewLoader(engine.LoaderConfig{Module: engine.FromLocation(client, "nicehtml.wasm")})
//	sess := orchestrator.NewSession(loader)
//	defer sess.Close(ctx)
//
//	orch := orchestrator.New(fetch.NewResolver(client))
//	report, err := orch.Run(ctx, sess, doc.Fragments)
//
// # Ordering
//
// The engine load and every fragment resolution start together. Conversion
// starts only after all of them settled and always follows discovery order.
// A fragment whose content could not be resolved is skipped; an engine that
// failed to load fails the whole run.
package nicehtml

// Package runner provides a reusable pipeline execution engine that can be embedded into other Go applications.
//
// # Overview
//
// The engine reads an already-validated pipeline document (trigger rules
// plus jobs of ordered steps), decides per incoming event whether a run
// is dispatched, executes jobs concurrently with sequential fail-fast
// steps, and aggregates structured results into a run verdict.
//
// # Basic Usage
//
// Create a runner programmatically:
//
//	pipeline, err := config.LoadPipeline("configs/pipeline.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := &runner.Config{
//		Pipeline: pipeline,
//		Server: runner.ServerConfig{
//			Port:         8080,
//			ReadTimeout:  30 * time.Second,
//			WriteTimeout: 30 * time.Second,
//		},
//		Engine: runner.EngineConfig{
//			MaxConcurrency: 4,
//			MaxOutputBytes: 1 << 20,
//		},
//		Logging: runner.LoggingConfig{
//			Level:  "info",
//			Format: "json",
//		},
//	}
//
//	r, err := runner.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := r.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Using with Existing HTTP Server
//
// Mount the engine's API into an existing server:
//
//	r, err := runner.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	http.Handle("/ci/", http.StripPrefix("/ci", r.Handler()))
//	http.ListenAndServe(":8080", nil)
//
// # Direct Service Access
//
// Dispatch events programmatically and wait for the verdict:
//
//	svc := r.Service()
//
//	run, err := svc.HandleEvent(ctx, models.Event{
//		Kind: models.EventPush,
//		Ref:  "main",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if run == nil {
//		fmt.Println("no trigger rule matched")
//		return
//	}
//
//	run, err = svc.WaitRun(ctx, run.RunID)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("run %s: %s\n", run.RunID, run.Status)
package runner

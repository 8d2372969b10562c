// Package layercfg builds, validates and persists layer override
// configurations.
//
// A Catalog holds the layers discovered from manifest files. A Configuration
// binds each of those layers to a state (application-controlled, overridden
// or excluded), a rank and a private copy of its settings. Reconcile keeps a
// configuration in step with the catalog, Validate is the save gate, and the
// preset helpers apply bundled enables/disables values to the designated
// validation layer.
//
// Engine ties these together with a Store, an optional activity emitter and
// an applicability Gate, and hands out one editing Session at a time:
//
//	engine, err := layercfg.NewEngine(catalog, layercfg.WithStore(store))
//	cfg := engine.CreateEmpty("Frame Capture")
//	session, err := engine.Build(cfg)
//	err = session.ApplyPreset(ctx, layercfg.PresetBestPractices)
//	err = engine.Cleanup(ctx)
package layercfg

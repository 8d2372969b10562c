// Package state persists layer configurations.
//
// FileStore keeps one JSON file per configuration in a directory and writes
// through a temporary file and rename, so a crash never leaves a truncated
// configuration behind. MemoryStore keeps the encoded bytes in memory and is
// meant for tests and dry runs. Both encode with layercfg.MarshalConfiguration,
// so a configuration read back from either store has the same shape as one
// read from disk.
//
// Every successful save records a Meta with a fresh snapshot id and a content
// ETag. Mutate uses the ETag for optimistic concurrency:
//
//	meta, err := state.Mutate(ctx, store, "Frame Capture", etag, func(cfg *layercfg.Configuration) error {
//		layercfg.SetState(cfg, "VK_LAYER_LUNARG_api_dump", layercfg.StateOverridden)
//		return nil
//	})
package state

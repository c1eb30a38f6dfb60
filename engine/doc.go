// Package engine hosts the NiceHTML transpilation engine on wazero.
//
// The engine is a core WebAssembly module. It must export a linear memory
// named "memory" and the functions below, written as WIT signatures and
// lowered to core types by the canonical ABI (a string is a pointer and a
// byte length):
//
//	alloc: func(size: u32) -> u32
//	transpile: func(source: string) -> s32
//	init: func()                       (optional)
//	dealloc: func(ptr: u32, size: u32) (optional)
//
// The host copies each fragment into memory returned by alloc and calls
// transpile. A non-zero result means the conversion failed. The guest may
// import these functions from the host module (named "nicehtml" by default):
//
//	emit(ptr, len)   append converted markup to the output sink
//	log(ptr, len)    write a diagnostic message
//	fail(ptr, len)   describe why the current conversion failed
//
// Modules built for WASI can additionally import wasi_snapshot_preview1 when
// LoaderConfig.EnableWASI is set; reactor modules get their _initialize
// export called during instantiation.
//
// Basic usage:
//
//	loader := engine.NewLoader(engine.LoaderConfig{
//	    Module: engine.FromBytes(engine.Reference()),
//	    Output: os.Stdout,
//	})
//	eng, err := loader.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close(ctx)
//
//	err = eng.Convert(ctx, source)
package engine

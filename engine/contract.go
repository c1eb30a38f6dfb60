package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/nicehtml/errors"
)

// Export names of the engine contract.
const (
	ExportMemory    = "memory"
	ExportAlloc     = "alloc"
	ExportTranspile = "transpile"
	ExportInit      = "init"
	ExportDealloc   = "dealloc"
)

const contractWIT = `
alloc: func(size: u32) -> u32;
transpile: func(source: string) -> s32;
init: func();
dealloc: func(ptr: u32, size: u32);
`

// Func is one exported function of a contract.
type Func struct {
	Name     string
	Decl     string
	Params   []wit.Type
	Results  []wit.Type
	Optional bool
}

// Core returns the flattened core signature of f.
func (f *Func) Core() (params, results []api.ValueType, err error) {
	if params, err = flatten(f.Params); err != nil {
		return nil, nil, err
	}
	if results, err = flatten(f.Results); err != nil {
		return nil, nil, err
	}
	return params, results, nil
}

// Contract lists the exports an engine module must provide.
type Contract struct {
	Funcs  []*Func
	Memory string
}

var (
	defaultContract    *Contract
	defaultContractErr error
	defaultOnce        sync.Once
)

// DefaultContract returns the NiceHTML engine contract.
func DefaultContract() (*Contract, error) {
	defaultOnce.Do(func() {
		defaultContract, defaultContractErr = ParseContract(contractWIT, ExportInit, ExportDealloc)
	})
	return defaultContract, defaultContractErr
}

var funcPattern = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

// ParseContract builds a contract from WIT function declarations.
// Functions named in optional may be absent from a module.
func ParseContract(witText string, optional ...string) (*Contract, error) {
	opt := make(map[string]bool, len(optional))
	for _, name := range optional {
		opt[name] = true
	}

	c := &Contract{Memory: ExportMemory}
	for _, match := range funcPattern.FindAllStringSubmatch(witText, -1) {
		f := &Func{
			Name:     match[1],
			Decl:     strings.TrimSpace(match[0]),
			Optional: opt[match[1]],
		}

		if params := strings.TrimSpace(match[2]); params != "" {
			for _, p := range splitParams(params) {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = strings.TrimSpace(p[idx+1:])
				}
				t, err := wit.ParseType(typStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse param type "+typStr)
				}
				f.Params = append(f.Params, t)
			}
		}

		if result := strings.TrimSpace(match[3]); result != "" && result != "()" {
			t, err := wit.ParseType(result)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "parse result type "+result)
			}
			f.Results = []wit.Type{t}
		}

		c.Funcs = append(c.Funcs, f)
	}

	if len(c.Funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no functions found in WIT text")
	}
	return c, nil
}

// Func returns the contract function called name, or nil.
func (c *Contract) Func(name string) *Func {
	for _, f := range c.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Verify checks the exports of compiled against the contract.
func (c *Contract) Verify(compiled wazero.CompiledModule) error {
	exported := compiled.ExportedFunctions()

	var missing []string
	if c.Memory != "" {
		if _, ok := compiled.ExportedMemories()[c.Memory]; !ok {
			missing = append(missing, c.Memory)
		}
	}

	for _, f := range c.Funcs {
		def, ok := exported[f.Name]
		if !ok {
			if !f.Optional {
				missing = append(missing, f.Name)
			}
			continue
		}

		params, results, err := f.Core()
		if err != nil {
			return err
		}
		if !sameTypes(params, def.ParamTypes()) || !sameTypes(results, def.ResultTypes()) {
			return errors.SignatureMismatch(f.Name, f.Decl, coreSignature(def.ParamTypes(), def.ResultTypes()))
		}
	}

	if len(missing) > 0 {
		return &errors.MissingExportsError{Exports: missing}
	}
	return nil
}

// checkImports reports function imports no provider satisfies. Modules in
// open accept any function name.
func checkImports(compiled wazero.CompiledModule, provided map[string]map[string]bool, open map[string]bool) error {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if open[module] || provided[module][name] {
			continue
		}
		missing = append(missing, module+"#"+name)
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.NewMissingImportsError(missing)
}

// flatten lowers WIT types to core value types.
func flatten(types []wit.Type) ([]api.ValueType, error) {
	var out []api.ValueType
	for _, t := range types {
		switch t.(type) {
		case wit.String:
			out = append(out, api.ValueTypeI32, api.ValueTypeI32)
		case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
			out = append(out, api.ValueTypeI32)
		case wit.U64, wit.S64:
			out = append(out, api.ValueTypeI64)
		case wit.F32:
			out = append(out, api.ValueTypeF32)
		case wit.F64:
			out = append(out, api.ValueTypeF64)
		default:
			return nil, errors.InvalidInput(errors.PhaseLoad, fmt.Sprintf("unsupported contract type %T", t))
		}
	}
	return out, nil
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func coreSignature(params, results []api.ValueType) string {
	names := func(vs []api.ValueType) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = api.ValueTypeName(v)
		}
		return strings.Join(parts, ", ")
	}
	return "(" + names(params) + ") -> (" + names(results) + ")"
}

// splitParams splits a parameter list, handling nested angle brackets.
func splitParams(s string) []string {
	var (
		result  []string
		current strings.Builder
		depth   int
	)
	for _, ch := range s {
		switch ch {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}
	return result
}

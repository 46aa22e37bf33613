package parser

import "slices"

// CallingConv is the calling convention of a wrapped function.
type CallingConv int

const (
	CallingConvUnknown CallingConv = iota
	CallingConvCdecl
	CallingConvStdcall
	CallingConvFastcall
	CallingConvThiscall
	CallingConvVectorcall
)

func (c CallingConv) String() string {
	switch c {
	case CallingConvCdecl:
		return "cdecl"
	case CallingConvStdcall:
		return "stdcall"
	case CallingConvFastcall:
		return "fastcall"
	case CallingConvThiscall:
		return "thiscall"
	case CallingConvVectorcall:
		return "vectorcall"
	default:
		return "unknown"
	}
}

// Function is the signature of one exported function declaration.
type Function struct {
	Name        string
	ResultType  string
	Params      []string
	CallingConv CallingConv
}

func (f Function) Equal(o Function) bool {
	return f.Name == o.Name &&
		f.ResultType == o.ResultType &&
		f.CallingConv == o.CallingConv &&
		slices.Equal(f.Params, o.Params)
}

func (f Function) ReturnsVoid() bool {
	return f.ResultType == "" || f.ResultType == "void"
}

// Header groups the functions extracted from one input file. Name is the
// bare file name used for the #include directive.
type Header struct {
	Name      string
	Functions []Function
}

func (h Header) Empty() bool {
	return len(h.Functions) == 0
}

package types

// FlowDirection is the data-flow role an argument plays at a call site
// (spec §3). Unknown is the declared-but-unresolved state a mode checker
// must narrow to one of the other four before a procedure can be
// unbranched.
type FlowDirection int

const (
	Unknown FlowDirection = iota
	In
	Out
	OutByReference
	TakeReference
)

func (f FlowDirection) String() string {
	switch f {
	case In:
		return "in "
	case Out:
		return "out "
	case OutByReference:
		return "out& "
	case TakeReference:
		return "&"
	default:
		return "?"
	}
}

// IsOutput reports whether f writes its variable (Out or OutByReference).
func (f FlowDirection) IsOutput() bool {
	return f == Out || f == OutByReference
}

// ArgFlowType distinguishes ordinary parameters from resources (expanded
// upstream to ordinary parameters, but still tagged for diagnostics) and
// from Free parameters, which are closure captures prepended by closure
// hoisting (spec §4.2.2).
type ArgFlowType int

const (
	Ordinary ArgFlowType = iota
	Resource
	Free
)

func (a ArgFlowType) String() string {
	switch a {
	case Resource:
		return "resource"
	case Free:
		return "free"
	default:
		return "ordinary"
	}
}

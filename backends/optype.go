package backends

// OpType is an enum of the generic operations that can be supported by a
// Backend.Builder.
//
// Nothing precludes a specialized backend Builder from supporting other ops
// not included here; it requires careful casting of interfaces by the caller.
type OpType int

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	OpTypeAdd
	OpTypeMul
	OpTypeReduceMax
	OpTypeReduceMin
	OpTypeReshape
)

var opTypeNames = [...]string{
	OpTypeInvalid:   "Invalid",
	OpTypeParameter: "Parameter",
	OpTypeConstant:  "Constant",
	OpTypeAdd:       "Add",
	OpTypeMul:       "Mul",
	OpTypeReduceMax: "ReduceMax",
	OpTypeReduceMin: "ReduceMin",
	OpTypeReshape:   "Reshape",
}

// String implements fmt.Stringer.
func (t OpType) String() string {
	if t < 0 || int(t) >= len(opTypeNames) {
		return "Invalid"
	}
	return opTypeNames[t]
}

package functions

// Builtins returns the functions of the standard library.
func Builtins() []Function {
	return []Function{
		// math
		Sum, Product, Average, Min, Max, Count, CountA, CountBlank,
		Abs, Round, Int, Mod, PowerFunc, Sqrt, Sign, Pi,
		// logic
		If, And, Or, Not, Xor, True, False, IfError, IfNA,
		// information
		IsBlank, IsErr, IsError, IsNA, IsNumber, IsText, IsNonText,
		IsLogical, IsRef, IsEven, IsOdd, ErrorType, NA, N, Type,
		// text
		Concatenate, ConcatFunc, Len, Upper, Lower, Trim, Left, Right,
	}
}

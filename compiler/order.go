package compiler

// Operator precedence tags for generated expressions.  Lower binds
// tighter.  A parent generator asks for a value at some order; if the
// child's declared order is numerically greater (weaker), the child's
// code gets parenthesized.  Every generator must honor this contract
// identically or generated expressions silently mis-associate.
const (
	OrderAtomic         = 0
	OrderMember         = 1
	OrderFunctionCall   = 2
	OrderUnary          = 4
	OrderMultiplication = 5
	OrderAddition       = 6
	OrderRelational     = 8
	OrderEquality       = 9
	OrderLogicalAnd     = 13
	OrderLogicalOr      = 14
	OrderConditional    = 15
	OrderAssignment     = 16
	OrderNone           = 99
)

// orderTable is what generator sources see as "Order".
var orderTable = map[string]interface{}{
	"ATOMIC":         OrderAtomic,
	"MEMBER":         OrderMember,
	"FUNCTION_CALL":  OrderFunctionCall,
	"UNARY":          OrderUnary,
	"MULTIPLICATION": OrderMultiplication,
	"ADDITION":       OrderAddition,
	"RELATIONAL":     OrderRelational,
	"EQUALITY":       OrderEquality,
	"LOGICAL_AND":    OrderLogicalAnd,
	"LOGICAL_OR":     OrderLogicalOr,
	"CONDITIONAL":    OrderConditional,
	"ASSIGNMENT":     OrderAssignment,
	"NONE":           OrderNone,
}

package entity

const (
	MethodManual     = "manual"
	MethodCreditCard = "credit_card"

	ProviderSelf   = "self"
	ProviderStripe = "stripe"
)

type Gateway struct {
	ID       uint64
	Name     string
	Provider string
	Method   string
	Active   bool
}

var methodPriority = map[string]int{
	MethodManual:     0,
	MethodCreditCard: 1,
}

// MethodPriority orders funding sources: manual funds are drawn before card
// holds. Unknown methods sort last.
func MethodPriority(method string) int {
	if p, ok := methodPriority[method]; ok {
		return p
	}
	return len(methodPriority)
}

func IsValidMethod(method string) bool {
	_, ok := methodPriority[method]
	return ok
}

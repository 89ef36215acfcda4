package payment

// ViewKind is the payment surface shown to the player.
type ViewKind int

const (
	ViewGolden ViewKind = iota
	ViewTicket
	ViewToken
	ViewCard
)

func (k ViewKind) String() string {
	switch k {
	case ViewGolden:
		return "golden"
	case ViewTicket:
		return "ticket"
	case ViewToken:
		return "token"
	case ViewCard:
		return "card"
	default:
		return "unknown"
	}
}

// Flow is the sub-step of the token view.
type Flow int

const (
	FlowInitial Flow = iota
	FlowWallet
	FlowCrossChain
)

func (f Flow) String() string {
	switch f {
	case FlowInitial:
		return "initial"
	case FlowWallet:
		return "wallet"
	case FlowCrossChain:
		return "cross_chain"
	default:
		return "unknown"
	}
}

// View is the current view with its token sub-flow. Only ViewToken carries a
// flow; the constructors keep every other combination unrepresentable.
type View struct {
	kind ViewKind
	flow Flow
}

// GoldenView returns the golden pass view.
func GoldenView() View { return View{kind: ViewGolden} }

// TicketView returns the ticket view.
func TicketView() View { return View{kind: ViewTicket} }

// CardView returns the card purchase view.
func CardView() View { return View{kind: ViewCard} }

// TokenView returns the token view in flow f.
func TokenView(f Flow) View { return View{kind: ViewToken, flow: f} }

func viewOf(kind ViewKind) View {
	if kind == ViewToken {
		return TokenView(FlowInitial)
	}
	return View{kind: kind}
}

// Kind returns the outer variant.
func (v View) Kind() ViewKind { return v.kind }

// Flow returns the token sub-flow; ok is false outside the token view.
func (v View) Flow() (Flow, bool) {
	if v.kind != ViewToken {
		return 0, false
	}
	return v.flow, true
}

// Is reports whether v is the token view in flow f.
func (v View) Is(f Flow) bool {
	return v.kind == ViewToken && v.flow == f
}

func (v View) String() string {
	if v.kind == ViewToken {
		return v.kind.String() + "/" + v.flow.String()
	}
	return v.kind.String()
}

// Subtitle is the token card's prompt for the current flow.
func (v View) Subtitle() string {
	switch {
	case v.Is(FlowInitial):
		return "Select how you want to pay for access"
	case v.Is(FlowCrossChain):
		return "Pay with a token on another chain"
	default:
		return "Select any token in your controller wallet"
	}
}

// Link is a footer navigation affordance.
type Link struct {
	Label string
	// Target is the view to navigate to. External links leave the modal instead.
	Target   ViewKind
	External bool
}

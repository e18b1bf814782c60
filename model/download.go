package model

type NegotiationKind string

const (
	NegotiationBinary          NegotiationKind = "binary"
	NegotiationPaymentRequired NegotiationKind = "payment_required"
	NegotiationCharityRequired NegotiationKind = "charity_required"
	NegotiationFailed          NegotiationKind = "failed"
)

// DownloadNegotiation is the discriminated result of a gated artifact request.
// The variant is selected by the response's declared content type, never by
// HTTP status alone: both the binary artifact and the negotiation metadata
// arrive on 2xx responses.
type DownloadNegotiation struct {
	Kind        NegotiationKind `json:"kind"`
	Filename    string          `json:"filename,omitempty"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	IsGuest     bool            `json:"is_guest,omitempty"`
	Message     string          `json:"message,omitempty"`
	Status      int             `json:"status,omitempty"`
}

// GatedResponse is the wire shape of a negotiation payload returned in place
// of the binary artifact.
type GatedResponse struct {
	RequiresPayment bool   `json:"requires_payment"`
	IsGuest         bool   `json:"is_guest"`
	CheckoutURL     string `json:"checkout_url"`
	CharityRequired bool   `json:"charity_required"`
	Message         string `json:"message"`
}

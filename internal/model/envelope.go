package model

// Envelope is the tagged wrapper used for broadcast updates and the price endpoint.
// A failed envelope carries a human-readable message and a null Data.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data"`
	Message string `json:"message"`
}

// Ok wraps data in a successful envelope.
func Ok[T any](data T, message string) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data, Message: message}
}

// Fail builds a failed envelope with no data.
func Fail[T any](message string) Envelope[T] {
	return Envelope[T]{Success: false, Message: message}
}

// ValuationUpdate is the payload pushed to an owner's group on every refresh.
type ValuationUpdate = Envelope[[]PortfolioValuation]

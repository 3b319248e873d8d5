package transport

// Envelope wraps every API response. Error responses carry a machine code
// clients branch on; the message is informational.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// PageMeta describes the window a list response was cut from.
type PageMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ErrorMeta points at the offending input.
type ErrorMeta struct {
	Field   string            `json:"field,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func NewSuccess(data interface{}) Envelope {
	return Envelope{Status: "success", Data: data}
}

func NewList(data interface{}, page PageMeta) Envelope {
	return Envelope{Status: "success", Data: data, Meta: page}
}

// NewError builds an error envelope. meta may be nil.
func NewError(code, message string, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  message,
		Meta:   meta,
	}
}

// NewFieldError reports a rejected field, or no meta when field is empty.
func NewFieldError(code, message, field string) Envelope {
	if field == "" {
		return NewError(code, message, nil)
	}
	return NewError(code, message, ErrorMeta{Field: field})
}

// NewValidationError reports every rejected field of a request body.
func NewValidationError(code string, verr *ValidationError) Envelope {
	return NewError(code, verr.Error(), ErrorMeta{Details: verr.Details})
}

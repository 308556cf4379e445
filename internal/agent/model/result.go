package model

// Capability names a handler the router can dispatch to. Values double as tool names.
type Capability string

const (
	CapabilityHospital Capability = "find_nearest_hospital"
	CapabilityPharmacy Capability = "find_nearest_pharmacy"
	CapabilityEmail    Capability = "send_care_email"
)

// CapabilityFor maps an intent to the capability serving it.
func CapabilityFor(i Intent) (Capability, bool) {
	switch i {
	case IntentHospital:
		return CapabilityHospital, true
	case IntentPharmacy:
		return CapabilityPharmacy, true
	case IntentEmail:
		return CapabilityEmail, true
	}
	return "", false
}

// HandlerResult is what a capability returns for one invocation.
type HandlerResult struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	ResultKey string   `json:"result_key"`
	Errors    []string `json:"errors,omitempty"`
}

// Succeeded builds a successful result for key.
func Succeeded(key Capability, message string) HandlerResult {
	return HandlerResult{Success: true, Message: message, ResultKey: string(key)}
}

// Failed builds a failed result; the user-visible message keeps the error text.
func Failed(key Capability, message string, err error) HandlerResult {
	r := HandlerResult{Success: false, Message: message, ResultKey: string(key)}
	if err != nil {
		r.Errors = []string{err.Error()}
	}
	return r
}

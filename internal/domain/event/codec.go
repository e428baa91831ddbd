package event

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the payload fields flat next to "type".
func (e Event) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Type {
	case TypeEndpointUpdate:
		payload = e.Endpoint
	case TypePageUpdate:
		payload = e.Page
	}
	out := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
	}
	out["type"] = e.Type
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	*e = Event{Type: head.Type}
	switch head.Type {
	case TypeEndpointUpdate:
		e.Endpoint = &EndpointUpdate{}
		return json.Unmarshal(b, e.Endpoint)
	case TypePageUpdate:
		e.Page = &PageUpdate{}
		return json.Unmarshal(b, e.Page)
	case TypeConnected:
		return nil
	}
	return fmt.Errorf("unknown event type %q", head.Type)
}

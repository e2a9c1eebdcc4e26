package calsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// wireBooking is the Cal.com v2 booking shape. Only the fields the studio
// uses are declared.
type wireBooking struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	Attendees   []struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
	} `json:"attendees"`
	BookingFieldsResponses map[string]any `json:"bookingFieldsResponses"`
	Payment                *struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Success  bool   `json:"success"`
	} `json:"payment"`
}

// recordUID pulls the uid out of a record that may not decode fully, so
// the error report can still name it.
func recordUID(raw json.RawMessage) string {
	var head struct {
		UID any `json:"uid"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	if s, ok := head.UID.(string); ok {
		return s
	}
	return ""
}

// skipped form fields that already live on the attendee
var attendeeFields = map[string]bool{"name": true, "email": true, "attendeePhoneNumber": true}

// decodeBooking validates one external record at the boundary.
func decodeBooking(raw json.RawMessage) (*Booking, error) {
	var w wireBooking
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("malformed record: %v", err)
	}
	uid := strings.TrimSpace(w.UID)
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	start, err := time.Parse(time.RFC3339, w.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q", w.Start)
	}
	end, err := time.Parse(time.RFC3339, w.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q", w.End)
	}
	if !end.After(start) {
		return nil, errors.New("end must be after start")
	}
	status := BookingStatus(strings.ToLower(strings.TrimSpace(w.Status)))
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", w.Status)
	}

	b := &Booking{
		UID:             uid,
		Title:           strings.TrimSpace(w.Title),
		StartTime:       start.UTC(),
		EndTime:         end.UTC(),
		Status:          status,
		Location:        strings.TrimSpace(w.Location),
		AdditionalNotes: strings.TrimSpace(w.Description),
	}
	for _, a := range w.Attendees {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		if email == "" {
			continue
		}
		if _, err := mail.ParseAddress(email); err != nil {
			continue
		}
		b.Attendee = Attendee{Name: strings.TrimSpace(a.Name), Email: email, Phone: strings.TrimSpace(a.PhoneNumber)}
		break
	}
	if b.Attendee.Email == "" {
		return nil, errors.New("an attendee with a valid email is required")
	}
	if w.Payment != nil {
		b.Payment = &Payment{AmountMinor: w.Payment.Amount, Currency: strings.ToLower(w.Payment.Currency), Paid: w.Payment.Success}
	}

	keys := make([]string, 0, len(w.BookingFieldsResponses))
	for k := range w.BookingFieldsResponses {
		if !attendeeFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := w.BookingFieldsResponses[k]
		if v == nil {
			continue
		}
		var value string
		switch t := v.(type) {
		case string:
			value = strings.TrimSpace(t)
		default:
			enc, _ := json.Marshal(t)
			value = string(enc)
		}
		if value == "" {
			continue
		}
		b.CustomInputs = append(b.CustomInputs, CustomInput{Label: k, Value: value})
	}
	return b, nil
}

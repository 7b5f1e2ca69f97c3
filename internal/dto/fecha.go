package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const layoutFecha = "2006-01-02"

// Fecha accepts either a plain date ("2024-01-03") or an RFC 3339 timestamp.
// Plain dates are read as midnight UTC.
type Fecha struct {
	time.Time
}

func NewFecha(t time.Time) Fecha { return Fecha{Time: t.UTC()} }

func (f *Fecha) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("fecha inválida: %s", data)
	}
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(layoutFecha, s); err == nil {
		f.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("fecha inválida %q: use YYYY-MM-DD o RFC 3339", s)
	}
	f.Time = t.UTC()
	return nil
}

func (f Fecha) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time.UTC().Format(time.RFC3339))
}

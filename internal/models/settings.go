package models

// Settings holds the user-editable preferences persisted to the settings
// file. Postcode drives region lookup; ShowPounds switches price display
// from pence to pounds.
type Settings struct {
	Postcode   string `json:"postcode"`
	ShowPounds bool   `json:"showPounds"`
}

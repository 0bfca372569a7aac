package domain

// PreviousWorkExample and Testimonial are display metadata. They are carried through
// unchanged and never take part in pricing.
type PreviousWorkExample struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

type ClientInfo struct {
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
	Company  string `json:"company,omitempty"`
}

type Testimonial struct {
	Client ClientInfo `json:"client"`
	Quote  string     `json:"quote"`
	Date   string     `json:"date,omitempty"`
}

package journals

// Journal is one entry of the scraped journal directory.
type Journal struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
}

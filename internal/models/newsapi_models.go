package models

type NewsAPIEverythingResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code,omitempty"`
	Message      string           `json:"message,omitempty"`
	TotalResults int              `json:"totalResults"`
	Articles     []NewsAPIArticle `json:"articles"`
}

type NewsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

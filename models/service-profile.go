package models

// ServiceProfile holds a photographer's service information, stored at
// photographer_service_information/{uid}. Created lazily on photographer
// sign-up, mutated by portfolio updates, never deleted.
type ServiceProfile struct {
	ServiceReviews  ServiceReviews   `json:"serviceReviews"`
	PhotosPortfolio []PortfolioPhoto `json:"photosPortofolio,omitempty"`
	Updated         int64            `json:"updated,omitempty"`
}

type ServiceReviews struct {
	Rating      RatingLabel  `json:"rating"`
	Impressions []Impression `json:"impressions"`
}

type RatingLabel struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Impression struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type PortfolioPhoto struct {
	URL            string `json:"url"`
	PublicID       string `json:"publicId"`
	DefaultPicture bool   `json:"defaultPicture"`
}

package model

// Pharmacy defaults
const (
	DefaultPharmacyName    = "Medical Store"
	DefaultPharmacyAddress = "Address not available"
)

// GeoPoint is a resolved location.
type GeoPoint struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName,omitempty"`
}

// Pharmacy is a point of interest returned by the pharmacy finder.
type Pharmacy struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	MapsURL string  `json:"mapsUrl"`
}

// PharmacySearchResult is the pharmacy list around a center point.
type PharmacySearchResult struct {
	Center     GeoPoint    `json:"center"`
	Radius     int         `json:"radius"`
	Pharmacies []*Pharmacy `json:"pharmacies"`
}

// TranslateRequest mirrors the LibreTranslate request body.
type TranslateRequest struct {
	Q      string `json:"q" binding:"required"`
	Source string `json:"source"`
	Target string `json:"target" binding:"required"`
	Format string `json:"format" binding:"omitempty,oneof=text html"`
}

// TranslateResponse mirrors the LibreTranslate response body.
type TranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// ChatRequest is the symptom chat request.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the symptom chat reply.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

package models

// Settings is the singleton store configuration. It is stored locally as
// one JSON value and remotely as the row {id: 1, data: <json>}.
type Settings struct {
	MinStockLimit int    `json:"minStockLimit"`
	Currency      string `json:"currency"`
	StoreName     string `json:"storeName"`
	StoreAddress  string `json:"storeAddress"`
	StorePhone    string `json:"storePhone"`
	StoreEmail    string `json:"storeEmail"`
}

// DefaultSettings is the fallback when no settings record exists yet.
func DefaultSettings() Settings {
	return Settings{
		MinStockLimit: 10,
		Currency:      "IDR",
		StoreName:     "Minimart",
	}
}

// DefaultCategories seeds a fresh installation.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Elektronik"},
		{Name: "Makanan"},
		{Name: "Minuman"},
		{Name: "Pakaian"},
	}
}

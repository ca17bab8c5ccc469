package geo

// TileLayer is a base or overlay map layer offered to the map client.
type TileLayer struct {
	Name    string  `json:"name"`
	URL     string  `json:"url"`
	Attr    string  `json:"attribution"`
	Overlay bool    `json:"overlay"`
	Show    bool    `json:"show"`
	Opacity float64 `json:"opacity"`
}

const mgbServices = "https://controlmap.mgb.gov.ph/arcgis/rest/services/GeospatialDataInventory_Public/"

// TileLayers returns the hazard overlays and base maps shown with the project markers.
func TileLayers() []TileLayer {
	return []TileLayer{
		{
			Name:    "MGB Flood Susceptibility",
			URL:     mgbServices + "GDI_Detailed_Flood_Susceptibility_Public/MapServer/tile/{z}/{y}/{x}",
			Attr:    "MGB Flood Hazard",
			Overlay: true,
			Opacity: 0.5,
		},
		{
			Name:    "MGB Rain Induced Landslide Susceptibility",
			URL:     mgbServices + "GDI_Detailed_Rain_induced_Landslide_Susceptibility_Public/MapServer/tile/{z}/{y}/{x}",
			Attr:    "MGB Rain/Landslide",
			Overlay: true,
			Opacity: 0.5,
		},
		{Name: "Satellite", URL: "Esri.WorldImagery", Show: true, Opacity: 1},
		{Name: "Dark Mode", URL: "CartoDB.DarkMatter", Opacity: 1},
		{Name: "Street Map", URL: "OpenStreetMap", Opacity: 1},
	}
}

// SusceptibilityLevel is one legend row of a hazard overlay.
type SusceptibilityLevel struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// SusceptibilityLegend describes the overlay colors, keyed by overlay name.
func SusceptibilityLegend() map[string][]SusceptibilityLevel {
	return map[string][]SusceptibilityLevel{
		"flood": {
			{Label: "Very High Susceptibility", Color: "#002673"},
			{Label: "High Susceptibility", Color: "#5900ff"},
			{Label: "Moderate Susceptibility", Color: "#b045ff"},
			{Label: "Low Susceptibility", Color: "#e3d1ff"},
		},
		"landslide": {
			{Label: "Very High Susceptibility", Color: "#902400"},
			{Label: "High Susceptibility", Color: "red"},
			{Label: "Moderate Susceptibility", Color: "green"},
			{Label: "Low Susceptibility", Color: "yellow"},
		},
	}
}

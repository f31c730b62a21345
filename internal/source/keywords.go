package source

// SupplyChainKeywords is the full monitoring vocabulary. The GDELT query
// itself stays simple (complex boolean queries break the doc API), so the
// vocabulary is surfaced in the fetch log as the scope being monitored.
var SupplyChainKeywords = []string{
	// Port and shipping
	"port strike", "port closure", "shipping delay", "container shortage",
	"cargo congestion", "vessel delay", "dock workers", "longshoremen",
	"freight rate", "supply bottleneck", "logistics disruption",

	// Manufacturing
	"factory fire", "factory closure", "production halt", "assembly line",
	"semiconductor shortage", "chip shortage", "component shortage",
	"manufacturing delay", "supplier bankruptcy", "quality control",

	// Natural disasters
	"typhoon Taiwan", "hurricane", "earthquake", "tsunami", "flooding",
	"wildfire", "volcano", "cyclone", "storm", "drought",

	// Transportation
	"rail strike", "trucking shortage", "driver shortage", "fuel shortage",
	"pipeline closure", "bridge collapse", "highway closure", "airport closure",
	"flight cancellation", "cargo aircraft",

	// Trade and economic
	"trade war", "tariff", "sanctions", "border closure", "customs delay",
	"currency crisis", "inflation", "recession", "supply chain finance",

	// Energy and resources
	"power outage", "energy crisis", "oil shortage", "gas shortage",
	"coal shortage", "renewable energy", "blackout", "grid failure",

	// Labor and social
	"labor dispute", "worker shortage", "strike", "lockout", "protest",
	"covid outbreak", "quarantine", "border restriction", "visa delay",

	// Technology and cyber
	"cyber attack", "ransomware", "system outage", "data breach",
	"software glitch", "network failure", "automation failure",

	// Geographic hotspots
	"Suez Canal", "Panama Canal", "Strait of Malacca", "Strait of Hormuz",
	"South China Sea", "Mediterranean", "Baltic Sea", "Persian Gulf",
}

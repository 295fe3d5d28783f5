package race

// Team is one entry of the fixed boat roster.
type Team struct {
	SourceID  int    `json:"sourceId"`
	Type      string `json:"type"`
	HullNum   string `json:"hullNum"`
	ShortName string `json:"shortName"`
	BoatName  string `json:"boatName"`
	Country   string `json:"country"`
}

// Teams returns the roster, at most one boat per team.
func Teams() []Team {
	return []Team{
		{SourceID: 101, Type: "Yacht", HullNum: "AC4501", ShortName: "USA", BoatName: "Oracle Team USA", Country: "USA"},
		{SourceID: 102, Type: "Yacht", HullNum: "AC4502", ShortName: "NZL", BoatName: "Emirates Team New Zealand", Country: "NZL"},
		{SourceID: 103, Type: "Yacht", HullNum: "AC4503", ShortName: "SWE", BoatName: "Artemis Racing", Country: "SWE"},
		{SourceID: 104, Type: "Yacht", HullNum: "AC4504", ShortName: "GBR", BoatName: "Land Rover BAR", Country: "GBR"},
		{SourceID: 105, Type: "Yacht", HullNum: "AC4505", ShortName: "JPN", BoatName: "SoftBank Team Japan", Country: "JPN"},
		{SourceID: 106, Type: "Yacht", HullNum: "AC4506", ShortName: "FRA", BoatName: "Groupama Team France", Country: "FRA"},
	}
}

package models

// Reward is an entry of the fixed reward catalogue.
type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinLevel    int    `json:"minLevel"`
}

var RewardCatalog = []Reward{
	{ID: "transit-day-pass", Name: "Transit day pass", Description: "One day of free public transport", MinLevel: 2},
	{ID: "park-entry", Name: "Park entry voucher", Description: "Free entry to a municipal park", MinLevel: 2},
	{ID: "library-membership", Name: "Library membership", Description: "One year of library membership", MinLevel: 3},
	{ID: "council-meeting", Name: "Council meeting seat", Description: "Reserved seat at a town council meeting", MinLevel: 4},
	{ID: "civic-hero-badge", Name: "Civic hero badge", Description: "Public recognition on the city website", MinLevel: 5},
}

func FindReward(id string) (Reward, bool) {
	for _, r := range RewardCatalog {
		if r.ID == id {
			return r, true
		}
	}
	return Reward{}, false
}

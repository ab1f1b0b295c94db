package auth

// Profile is a professional profile a user registers under.
type Profile string

const (
	ProfileAgronomist          Profile = "agronomist"
	ProfileZootechnist         Profile = "zootechnist"
	ProfileBeefRancher         Profile = "beef_rancher"
	ProfileDairyRancher        Profile = "dairy_rancher"
	ProfileAgribusinessManager Profile = "agribusiness_manager"
	ProfileAnimalGeneticist    Profile = "animal_geneticist"
	ProfilePlantGeneticist     Profile = "plant_geneticist"
	ProfileStudFarmOwner       Profile = "stud_farm_owner"
	ProfileCooperative         Profile = "cooperative"
	ProfileTechnicalConsultant Profile = "technical_consultant"
)

// Optional registration fields that some profiles require.
const (
	FieldLicenseNumber   = "license_number"
	FieldSpecialization  = "specialization"
	FieldAreaHectares    = "area_hectares"
	FieldExperienceYears = "experience_years"
)

// ProfileInfo describes a profile to clients choosing one at sign-up.
type ProfileInfo struct {
	Profile        Profile  `json:"profile"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredFields []string `json:"required_fields"`
	ExampleUse     string   `json:"example_use"`
}

var profiles = []ProfileInfo{
	{
		Profile:        ProfileAgronomist,
		Name:           "Agronomist",
		Description:    "Crop systems and plant production specialist",
		RequiredFields: []string{FieldLicenseNumber, FieldSpecialization},
		ExampleUse:     "Crop monitoring, soil analysis, plant health control",
	},
	{
		Profile:        ProfileZootechnist,
		Name:           "Zootechnist",
		Description:    "Animal production and herd management specialist",
		RequiredFields: []string{FieldLicenseNumber, FieldSpecialization},
		ExampleUse:     "Pasture management, animal nutrition, reproduction control",
	},
	{
		Profile:        ProfileBeefRancher,
		Name:           "Beef Rancher",
		Description:    "Producer raising cattle for slaughter",
		RequiredFields: []string{FieldAreaHectares},
		ExampleUse:     "Weight tracking, herd indices, market prices",
	},
	{
		Profile:        ProfileDairyRancher,
		Name:           "Dairy Rancher",
		Description:    "Producer specialized in milk production",
		RequiredFields: []string{FieldAreaHectares},
		ExampleUse:     "Milking control, milk quality, reproductive efficiency",
	},
	{
		Profile:        ProfileAgribusinessManager,
		Name:           "Agribusiness Manager",
		Description:    "Rural business management professional",
		RequiredFields: []string{FieldExperienceYears},
		ExampleUse:     "Financial analysis, operational KPIs, strategic planning",
	},
	{
		Profile:        ProfileAnimalGeneticist,
		Name:           "Animal Genetics Specialist",
		Description:    "Animal breeding professional",
		RequiredFields: []string{FieldLicenseNumber, FieldSpecialization},
		ExampleUse:     "Pedigree control, EPDs, mating plans",
	},
	{
		Profile:        ProfilePlantGeneticist,
		Name:           "Plant Genetics Specialist",
		Description:    "Plant breeding professional",
		RequiredFields: []string{FieldLicenseNumber, FieldSpecialization},
		ExampleUse:     "Cultivar development, molecular analysis",
	},
	{
		Profile:        ProfileStudFarmOwner,
		Name:           "Stud Farm Owner",
		Description:    "Horse breeder",
		RequiredFields: []string{FieldAreaHectares},
		ExampleUse:     "Mare management, breeding control, training",
	},
	{
		Profile:        ProfileCooperative,
		Name:           "Cooperative Representative",
		Description:    "Agricultural cooperative professional",
		RequiredFields: []string{FieldExperienceYears},
		ExampleUse:     "Technical assistance, regional analysis, member support",
	},
	{
		Profile:        ProfileTechnicalConsultant,
		Name:           "Technical Consultant",
		Description:    "Independent agricultural consultant",
		RequiredFields: []string{FieldLicenseNumber, FieldSpecialization, FieldExperienceYears},
		ExampleUse:     "Specialized consulting, technical reports, projects",
	},
}

// Profiles lists every profile in display order.
func Profiles() []ProfileInfo {
	out := make([]ProfileInfo, len(profiles))
	copy(out, profiles)
	return out
}

func lookupProfile(p Profile) (ProfileInfo, bool) {
	for _, info := range profiles {
		if info.Profile == p {
			return info, true
		}
	}
	return ProfileInfo{}, false
}

// DashboardConfig is the per-profile dashboard layout.
type DashboardConfig struct {
	Title      string   `json:"title"`
	Modules    []string `json:"modules"`
	ThemeColor string   `json:"theme_color"`
	Widgets    []string `json:"widgets"`
}

var dashboards = map[Profile]DashboardConfig{
	ProfileAgronomist: {
		Title:      "Agronomy Dashboard",
		Modules:    []string{"weather", "soil", "pests", "irrigation", "ndvi"},
		ThemeColor: "#2E7D32",
		Widgets:    []string{"plant_health_alerts", "application_calendar", "soil_analysis"},
	},
	ProfileZootechnist: {
		Title:      "Animal Science Dashboard",
		Modules:    []string{"pasture", "nutrition", "reproduction", "animal_health"},
		ThemeColor: "#1976D2",
		Widgets:    []string{"pasture_index", "reproduction_control", "health_alerts"},
	},
	ProfileBeefRancher: {
		Title:      "Beef Cattle Dashboard",
		Modules:    []string{"herd", "pasture", "market", "finance"},
		ThemeColor: "#F57C00",
		Widgets:    []string{"cattle_price", "pasture_index", "weight_control"},
	},
	ProfileDairyRancher: {
		Title:      "Dairy Dashboard",
		Modules:    []string{"milking", "nutrition", "reproduction", "milk_quality"},
		ThemeColor: "#0288D1",
		Widgets:    []string{"daily_production", "scc_tbc", "reproductive_efficiency"},
	},
	ProfileAnimalGeneticist: {
		Title:      "Animal Genetics Dashboard",
		Modules:    []string{"pedigree", "performance", "matings", "epd"},
		ThemeColor: "#7B1FA2",
		Widgets:    []string{"pedigree_tree", "epd", "mating_control"},
	},
	ProfileStudFarmOwner: {
		Title:      "Equine Dashboard",
		Modules:    []string{"horses", "reproduction", "training", "competitions"},
		ThemeColor: "#8D6E63",
		Widgets:    []string{"mare_control", "breeding_schedule", "competition_results"},
	},
}

var defaultDashboard = DashboardConfig{
	Title:      "Agribusiness Dashboard",
	Modules:    []string{"general"},
	ThemeColor: "#388E3C",
	Widgets:    []string{"general_dashboard"},
}

// DashboardFor returns the dashboard layout for p, or the generic one.
func DashboardFor(p Profile) DashboardConfig {
	if d, ok := dashboards[p]; ok {
		return d
	}
	return defaultDashboard
}

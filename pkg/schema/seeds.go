package schema

// Section names used by the seed catalog.
const (
	SectionBasic   = "basic"
	SectionPlant   = "plant"
	SectionGrowing = "growing"
	SectionHarvest = "harvest"
	SectionNotes   = "notes"
)

// seedFields is the catalog's field table. Enum options are ordered so that
// the more specific reading comes first when prose matches several.
var seedFields = []FieldSpec{
	// basic
	{Key: "seed_name", Label: "Seed Name", Kind: KindText, Section: SectionBasic,
		Aliases: []string{"name", "plant_name", "common_name"}, AIPopulated: true, Confidence: ConfidenceHigh},
	{Key: "variety_name", Label: "Variety", Kind: KindText, Section: SectionBasic,
		Aliases: []string{"variety", "cultivar", "cultivar_name"}, AIPopulated: true, Confidence: ConfidenceHigh,
		DistinctFrom: "seed_name"},
	{Key: "item_number", Label: "Item Number", Kind: KindText, Section: SectionBasic,
		Aliases: []string{"sku"}},
	{Key: "categories", Label: "Categories", Kind: KindMultiEnum, Section: SectionBasic,
		Aliases: []string{"category", "seed_categories", "seed_category"}, AIPopulated: true, Confidence: ConfidenceHigh,
		Options: []EnumOption{
			{Value: "Vegetables", Synonyms: []string{"vegetable", "veggies"}},
			{Value: "Fruits", Synonyms: []string{"fruit", "berries"}},
			{Value: "Herbs", Synonyms: []string{"herb", "culinary herb", "medicinal herb"}},
			{Value: "Flowers", Synonyms: []string{"flower", "ornamental", "annual flower"}},
			{Value: "Grains", Synonyms: []string{"grain", "cereal"}},
			{Value: "Cover Crops", Synonyms: []string{"cover crop", "green manure"}},
			{Value: "Trees & Shrubs", Synonyms: []string{"tree", "shrub"}},
		}},
	{Key: "seed_type", Label: "Seed Type", Kind: KindEnum, Section: SectionBasic,
		Aliases: []string{"type", "seed_classification"}, AIPopulated: true, Confidence: ConfidenceHigh,
		Options: []EnumOption{
			{Value: "Hybrid", Synonyms: []string{"F1", "F1 hybrid"}},
			{Value: "Heirloom"},
			{Value: "Open-Pollinated", Synonyms: []string{"OP", "open pollinated"}},
		}},
	{Key: "description", Label: "Description", Kind: KindLongText, Section: SectionBasic,
		Aliases: []string{"summary", "overview"}, AIPopulated: true},
	{Key: "image_url", Label: "Image URL", Kind: KindURL, Section: SectionBasic},
	{Key: "source_url", Label: "Source URL", Kind: KindURL, Section: SectionBasic,
		Aliases: []string{"product_url", "vendor_url"}},
	{Key: "supplier", Label: "Supplier", Kind: KindText, Section: SectionBasic,
		Aliases: []string{"vendor", "seed_company"}},

	// plant
	{Key: "plant_type", Label: "Plant Type", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"plant_family", "type_of_plant"}, AIPopulated: true, Confidence: ConfidenceHigh},
	{Key: "life_cycle", Label: "Life Cycle", Kind: KindEnum, Section: SectionPlant,
		Aliases: []string{"lifecycle", "life_span"}, AIPopulated: true, Confidence: ConfidenceHigh,
		Options: []EnumOption{
			{Value: "Annual"},
			{Value: "Biennial"},
			{Value: "Perennial", Synonyms: []string{"tender perennial", "short-lived perennial"}},
		}},
	{Key: "growth_habit", Label: "Growth Habit", Kind: KindEnum, Section: SectionPlant,
		Aliases: []string{"habit", "growth_type"}, AIPopulated: true,
		Options: []EnumOption{
			{Value: "Bush", Synonyms: []string{"determinate", "compact", "bushy"}},
			{Value: "Vining", Synonyms: []string{"indeterminate", "vine", "climbing", "climber"}},
			{Value: "Upright", Synonyms: []string{"erect", "columnar"}},
			{Value: "Mounding", Synonyms: []string{"clumping", "mound"}},
			{Value: "Spreading", Synonyms: []string{"trailing", "sprawling", "groundcover"}},
		}},
	{Key: "plant_size", Label: "Plant Size", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"size", "mature_size", "height"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "fruit_info", Label: "Fruit / Yield", Kind: KindLongText, Section: SectionPlant,
		Aliases: []string{"fruit", "yield", "fruit_description"}, AIPopulated: true},
	{Key: "flavor_profile", Label: "Flavor Profile", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"flavor", "flavour", "taste"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "scent", Label: "Scent", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"fragrance", "aroma"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "bloom_time", Label: "Bloom Time", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"flowering_time", "bloom_season"}, AIPopulated: true},
	{Key: "special_characteristics", Label: "Special Characteristics", Kind: KindLongText, Section: SectionPlant,
		Aliases: []string{"characteristics", "special_features", "features"}, AIPopulated: true},
	{Key: "usda_zones", Label: "USDA Zones", Kind: KindText, Section: SectionPlant,
		Aliases: []string{"hardiness_zones", "zones", "hardiness"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "container_suitability", Label: "Container Suitable", Kind: KindBoolean, Section: SectionPlant,
		Aliases: []string{"container_friendly", "suitable_for_containers", "container"}, AIPopulated: true},
	{Key: "cut_flower_potential", Label: "Cut Flower", Kind: KindBoolean, Section: SectionPlant,
		Aliases: []string{"cut_flower", "cut_flowers", "good_cut_flower"}, AIPopulated: true},
	{Key: "pollinator_friendly", Label: "Pollinator Friendly", Kind: KindBoolean, Section: SectionPlant,
		Aliases: []string{"attracts_pollinators", "pollinator_info"}, AIPopulated: true},
	{Key: "deer_resistant", Label: "Deer Resistant", Kind: KindBoolean, Section: SectionPlant,
		Aliases: []string{"deer_resistance"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "drought_tolerant", Label: "Drought Tolerant", Kind: KindBoolean, Section: SectionPlant,
		Aliases: []string{"drought_tolerance"}, AIPopulated: true},

	// growing
	{Key: "sowing_method", Label: "Sowing Method", Kind: KindEnum, Section: SectionGrowing,
		Aliases: []string{"sowing", "planting_method", "how_to_sow"}, AIPopulated: true, Confidence: ConfidenceHigh,
		Options: []EnumOption{
			{Value: "Both", Synonyms: []string{"direct sow or start indoors", "indoors or outdoors", "either"}},
			{Value: "Direct Sow", Synonyms: []string{"direct seed", "sow outdoors", "direct sow outdoors"}},
			{Value: "Start Indoors", Synonyms: []string{"sow indoors", "transplant", "start inside"}},
		}},
	{Key: "sowing_depth", Label: "Sowing Depth", Kind: KindText, Section: SectionGrowing,
		Aliases: []string{"planting_depth", "seed_depth", "depth"}, AIPopulated: true},
	{Key: "sowing_spacing", Label: "Spacing", Kind: KindText, Section: SectionGrowing,
		Aliases: []string{"spacing", "plant_spacing", "row_spacing"}, AIPopulated: true},
	{Key: "germination_temp", Label: "Germination Temperature", Kind: KindText, Section: SectionGrowing,
		Aliases: []string{"germination_temperature", "soil_temperature", "soil_temp"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "days_to_germination", Label: "Days to Germination", Kind: KindInteger, Section: SectionGrowing,
		Aliases: []string{"germination_days", "germination_time"}, AIPopulated: true},
	{Key: "days_to_maturity", Label: "Days to Maturity", Kind: KindInteger, Section: SectionGrowing,
		Aliases: []string{"maturity_days", "days_to_harvest", "maturity"}, AIPopulated: true, Confidence: ConfidenceHigh},
	{Key: "sunlight", Label: "Sunlight", Kind: KindEnum, Section: SectionGrowing,
		Aliases: []string{"sun_requirements", "sun", "light_requirements", "sun_exposure", "light"}, AIPopulated: true, Confidence: ConfidenceHigh,
		Options: []EnumOption{
			{Value: "Partial Sun", Synonyms: []string{"part sun", "sun and some shade", "sun or shade"}},
			{Value: "Partial Shade", Synonyms: []string{"part shade", "dappled shade", "light shade"}},
			{Value: "Full Shade", Synonyms: []string{"shade", "deep shade"}},
			{Value: "Full Sun", Synonyms: []string{"sun", "direct sun", "full sunlight"}},
		}},
	{Key: "water_needs", Label: "Water Needs", Kind: KindEnum, Section: SectionGrowing,
		Aliases: []string{"watering", "water", "water_requirements"}, AIPopulated: true,
		Options: []EnumOption{
			{Value: "Low", Synonyms: []string{"minimal", "dry"}},
			{Value: "Moderate", Synonyms: []string{"medium", "average", "regular"}},
			{Value: "High", Synonyms: []string{"consistent moisture", "keep moist", "heavy"}},
		}},
	{Key: "fertilizer", Label: "Fertilizer", Kind: KindText, Section: SectionGrowing,
		Aliases: []string{"feeding", "fertilizer_needs", "fertilizing"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "companion_plants", Label: "Companion Plants", Kind: KindText, Section: SectionGrowing,
		Aliases: []string{"companions", "companion_planting"}, AIPopulated: true, Confidence: ConfidenceLow},
	{Key: "pest_disease_info", Label: "Pests & Diseases", Kind: KindLongText, Section: SectionGrowing,
		Aliases: []string{"pests", "diseases", "pest_and_disease"}, AIPopulated: true},

	// harvest
	{Key: "harvesting_tips", Label: "Harvesting Tips", Kind: KindLongText, Section: SectionHarvest,
		Aliases: []string{"harvest", "harvest_tips", "harvesting"}, AIPopulated: true},
	{Key: "storage_recommendations", Label: "Storage", Kind: KindLongText, Section: SectionHarvest,
		Aliases: []string{"storage", "storage_tips"}, AIPopulated: true},
	{Key: "seed_saving_info", Label: "Seed Saving", Kind: KindLongText, Section: SectionHarvest,
		Aliases: []string{"seed_saving", "saving_seeds"}, AIPopulated: true},

	// notes
	{Key: "purchase_date", Label: "Purchase Date", Kind: KindDate, Section: SectionNotes,
		Aliases: []string{"date_purchased"}},
	{Key: "packed_for_year", Label: "Packed For", Kind: KindInteger, Section: SectionNotes,
		Aliases: []string{"pack_year", "packed_for"}},
	{Key: "seed_count", Label: "Seed Count", Kind: KindInteger, Section: SectionNotes,
		Aliases: []string{"quantity", "seeds_per_packet"}},
	{Key: "notes", Label: "Notes", Kind: KindLongText, Section: SectionNotes},
}

var defaultRegistry = MustNew(seedFields)

// Default returns the seed catalog registry.
func Default() *Registry {
	return defaultRegistry
}

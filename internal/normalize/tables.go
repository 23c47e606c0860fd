package normalize

// Ship names are matched against full lowercase names only; bare first words
// like "star" are too ambiguous for the containment pass.
var shipTable = table{
	{"icon of the seas", "Icon of the Seas"},
	{"star of the seas", "Star of the Seas"},
	{"utopia of the seas", "Utopia of the Seas"},
	{"wonder of the seas", "Wonder of the Seas"},
	{"symphony of the seas", "Symphony of the Seas"},
	{"harmony of the seas", "Harmony of the Seas"},
	{"allure of the seas", "Allure of the Seas"},
	{"oasis of the seas", "Oasis of the Seas"},
	{"odyssey of the seas", "Odyssey of the Seas"},
	{"spectrum of the seas", "Spectrum of the Seas"},
	{"quantum of the seas", "Quantum of the Seas"},
	{"ovation of the seas", "Ovation of the Seas"},
	{"anthem of the seas", "Anthem of the Seas"},
	{"freedom of the seas", "Freedom of the Seas"},
	{"liberty of the seas", "Liberty of the Seas"},
	{"independence of the seas", "Independence of the Seas"},
	{"navigator of the seas", "Navigator of the Seas"},
	{"mariner of the seas", "Mariner of the Seas"},
	{"explorer of the seas", "Explorer of the Seas"},
	{"adventure of the seas", "Adventure of the Seas"},
	{"voyager of the seas", "Voyager of the Seas"},
	{"radiance of the seas", "Radiance of the Seas"},
	{"brilliance of the seas", "Brilliance of the Seas"},
	{"serenade of the seas", "Serenade of the Seas"},
	{"jewel of the seas", "Jewel of the Seas"},
	{"enchantment of the seas", "Enchantment of the Seas"},
	{"grandeur of the seas", "Grandeur of the Seas"},
	{"vision of the seas", "Vision of the Seas"},
	{"rhapsody of the seas", "Rhapsody of the Seas"},
}

var portTable = table{
	{"port canaveral", "Port Canaveral, Florida"},
	{"orlando", "Port Canaveral, Florida"},
	{"fort lauderdale", "Fort Lauderdale, Florida"},
	{"port everglades", "Fort Lauderdale, Florida"},
	{"miami", "Miami, Florida"},
	{"tampa", "Tampa, Florida"},
	{"galveston", "Galveston, Texas"},
	{"cape liberty", "Cape Liberty, New Jersey"},
	{"bayonne", "Cape Liberty, New Jersey"},
	{"baltimore", "Baltimore, Maryland"},
	{"boston", "Boston, Massachusetts"},
	{"new orleans", "New Orleans, Louisiana"},
	{"san juan", "San Juan, Puerto Rico"},
	{"seattle", "Seattle, Washington"},
	{"vancouver", "Vancouver, British Columbia"},
	{"los angeles", "Los Angeles, California"},
	{"honolulu", "Honolulu, Hawaii"},
	{"civitavecchia", "Rome (Civitavecchia), Italy"},
	{"rome", "Rome (Civitavecchia), Italy"},
	{"barcelona", "Barcelona, Spain"},
	{"southampton", "Southampton, England"},
	{"copenhagen", "Copenhagen, Denmark"},
	{"sydney", "Sydney, Australia"},
	{"brisbane", "Brisbane, Australia"},
	{"singapore", "Singapore"},
}

// CabinTypes are the canonical stateroom categories.
var CabinTypes = []string{"Interior", "Ocean View", "Balcony", "Suite"}

// Balcony precedes Ocean View so "Ocean View Balcony" resolves to Balcony.
var cabinTable = table{
	{"junior suite", "Suite"},
	{"grand suite", "Suite"},
	{"owner's suite", "Suite"},
	{"suite", "Suite"},
	{"balcony", "Balcony"},
	{"veranda", "Balcony"},
	{"ocean view", "Ocean View"},
	{"oceanview", "Ocean View"},
	{"outside", "Ocean View"},
	{"interior", "Interior"},
	{"inside", "Interior"},
	{"ste", "Suite"},
	{"bal", "Balcony"},
	{"ov", "Ocean View"},
	{"int", "Interior"},
}

var destinationTable = table{
	{"western caribbean", "Western Caribbean"},
	{"eastern caribbean", "Eastern Caribbean"},
	{"southern caribbean", "Southern Caribbean"},
	{"caribbean", "Caribbean"},
	{"perfect day", "Bahamas"},
	{"bahamas", "Bahamas"},
	{"bermuda", "Bermuda"},
	{"alaska", "Alaska"},
	{"hawaii", "Hawaii"},
	{"pacific coastal", "Pacific Coastal"},
	{"greek isles", "Mediterranean"},
	{"mediterranean", "Mediterranean"},
	{"norwegian fjords", "Northern Europe"},
	{"baltic", "Northern Europe"},
	{"northern europe", "Northern Europe"},
	{"transatlantic", "Transatlantic"},
	{"new england", "Canada & New England"},
	{"canada", "Canada & New England"},
	{"australia", "Australia & New Zealand"},
	{"new zealand", "Australia & New Zealand"},
	{"asia", "Asia"},
}

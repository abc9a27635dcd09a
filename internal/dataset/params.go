package dataset

// paramInfo names a GRIB2 parameter the way the providers' filters refer to it.
type paramInfo struct {
	ShortName string
	Units     string
}

type paramKey struct {
	discipline, category, number int
}

// Only the parameters the two providers deliver are catalogued.
var paramTable = map[paramKey]paramInfo{
	{0, 1, 8}:   {"tp", "kg m-2"},
	{0, 1, 193}: {"tp", "m"}, // ECMWF local table
	{0, 1, 76}:  {"rain_con", "kg m-2"},
	{0, 2, 2}:   {"10u", "m s-1"},
	{0, 2, 3}:   {"10v", "m s-1"},
	{0, 6, 1}:   {"tcc", "%"},
}

func lookupParam(discipline, category, number int) (paramInfo, bool) {
	p, ok := paramTable[paramKey{discipline, category, number}]
	return p, ok
}

var levelNames = map[int]string{
	1:   "surface",
	10:  "entireAtmosphere",
	101: "meanSea",
	103: "heightAboveGround",
}

func levelName(code int) string {
	if name, ok := levelNames[code]; ok {
		return name
	}
	return "unknown"
}

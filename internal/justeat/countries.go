package justeat

// Country is a Just Eat market the linker can log in to.
type Country struct {
	Name string
	Code string
}

// Countries lists the supported markets in display order. The first entry is the default.
var Countries = []Country{
	{Name: "United Kingdom", Code: "UK"},
	{Name: "Italy", Code: "IT"},
	{Name: "Australia", Code: "AU"},
	{Name: "Austria", Code: "AT"},
	{Name: "Germany", Code: "DE"},
	{Name: "Ireland", Code: "IE"},
	{Name: "Spain", Code: "ES"},
}

// DefaultCountry returns the preselected market.
func DefaultCountry() Country {
	return Countries[0]
}

// LookupCountry finds a supported market by its code.
func LookupCountry(code string) (Country, bool) {
	for _, c := range Countries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}

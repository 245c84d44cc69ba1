package features

// UnknownCode is returned for category values a frozen codebook has never seen.
const UnknownCode = -1

// MissingCategory replaces absent categorical values before code assignment, so that a
// missing value always receives a real code.
const MissingCategory = "unknown"

// Codebook maps categorical values to stable integer codes, per column.
// Codes are assigned in first-seen order starting at 0. A Codebook returned by the
// Encoder is never modified again and may be shared between goroutines.
type Codebook struct {
	// Codes is column -> value -> code. Exported for gob.
	Codes map[string]map[string]int
	// Values is column -> values indexed by code.
	Values map[string][]string
}

// NewCodebook returns an empty codebook.
func NewCodebook() *Codebook {
	return &Codebook{
		Codes:  make(map[string]map[string]int),
		Values: make(map[string][]string),
	}
}

// Code returns the code for value in column, or UnknownCode.
func (c *Codebook) Code(column, value string) int {
	code, ok := c.Lookup(column, value)
	if !ok {
		return UnknownCode
	}
	return code
}

// Lookup returns the code for value in column and whether it was known.
func (c *Codebook) Lookup(column, value string) (int, bool) {
	if c == nil {
		return UnknownCode, false
	}
	codes, ok := c.Codes[column]
	if !ok {
		return UnknownCode, false
	}
	code, ok := codes[value]
	if !ok {
		return UnknownCode, false
	}
	return code, true
}

// Categories returns the known values of a column in code order.
func (c *Codebook) Categories(column string) []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.Values[column]))
	copy(out, c.Values[column])
	return out
}

// assign returns the code of value, allocating the next one if unseen.
// Only used while the encoder builds a fresh codebook.
func (c *Codebook) assign(column, value string) int {
	codes, ok := c.Codes[column]
	if !ok {
		codes = make(map[string]int)
		c.Codes[column] = codes
	}
	if code, ok := codes[value]; ok {
		return code
	}
	code := len(c.Values[column])
	codes[value] = code
	c.Values[column] = append(c.Values[column], value)
	return code
}

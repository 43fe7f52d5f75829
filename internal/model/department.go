package model

type Department struct {
	DeptID   string `json:"dept_id"`
	DeptName string `json:"dept_name"`
	DeptDesc string `json:"dept_desc"`
}

// EmbedText is the canonical text a department is embedded under: name
// and description joined by a single space. The router and the warm
// job must agree on it, or the warm cache never hits.
func (d Department) EmbedText() string {
	return d.DeptName + " " + d.DeptDesc
}

// Candidate is a department scored against one message. It lives only
// for the duration of a single routing invocation and is never stored.
type Candidate struct {
	Department
	Similarity float64 `json:"similarity"`
}

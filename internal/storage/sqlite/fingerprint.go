package sqlite

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"editorial-cache/internal/storage"
)

func hashJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ManuscriptFingerprint hashes the fields whose change makes a re-extraction
// meaningful: title, status, authors and referees.
func ManuscriptFingerprint(m storage.Manuscript) string {
	return hashJSON(struct {
		Title    string                      `json:"title"`
		Status   string                      `json:"status"`
		Authors  []string                    `json:"authors"`
		Referees []storage.ManuscriptReferee `json:"referees"`
	}{m.Title, m.Status, nonNilStrings(m.Authors), nonNilReferees(m.Referees)})
}

func refereeFingerprint(r *storage.Referee) string {
	return hashJSON(struct {
		Name        string `json:"name"`
		Institution string `json:"institution"`
		Department  string `json:"department"`
		Country     string `json:"country"`
		ORCID       string `json:"orcid"`
	}{r.Name, r.Institution, r.Department, r.Country, r.ORCID})
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilReferees(r []storage.ManuscriptReferee) []storage.ManuscriptReferee {
	if r == nil {
		return []storage.ManuscriptReferee{}
	}
	return r
}

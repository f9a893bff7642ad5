package setting

import (
	"strconv"

	"github.com/trezcool/hocba/core"
)

// Allowed system setting keys.
const (
	KeyGPAGioi       = "GPA_GIOI_THRESHOLD"
	KeyGPAKha        = "GPA_KHA_THRESHOLD"
	KeyGPATrungBinh  = "GPA_TRUNGBINH_THRESHOLD"
	KeyDebtCredits   = "TINCHI_NO_CANHCAO_THRESHOLD"
	KeyEmailDomain   = "EMAIL_DOMAIN"
	KeyDefaultMajor  = "DEFAULT_MAJOR"
	KeyRetakePolicy  = "RETAKE_POLICY_DEFAULT"
	retakeKeepLatest = "keep-latest"
)

var (
	AllowedKeys = []string{
		KeyGPAGioi,
		KeyGPAKha,
		KeyGPATrungBinh,
		KeyDebtCredits,
		KeyEmailDomain,
		KeyDefaultMajor,
		KeyRetakePolicy,
	}

	Labels = map[string]string{
		KeyGPAGioi:      "GPA threshold for a good standing",
		KeyGPAKha:       "GPA threshold for a fair standing",
		KeyGPATrungBinh: "GPA threshold for an average standing (academic warning below)",
		KeyDebtCredits:  "Owed credits that raise an academic warning",
		KeyEmailDomain:  "Student e-mail domain",
		KeyDefaultMajor: "Default major code",
		KeyRetakePolicy: "Default retake grading policy",
	}
)

func IsAllowed(key string) bool {
	_, ok := Labels[key]
	return ok
}

// Defaults are the values seeded into an empty settings table.
// The warning thresholds come from the application config.
func Defaults(conf core.WarningConfig) map[string]string {
	return map[string]string{
		KeyGPAGioi:      "3.2",
		KeyGPAKha:       "2.5",
		KeyGPATrungBinh: strconv.FormatFloat(conf.GPAThreshold, 'f', -1, 64),
		KeyDebtCredits:  strconv.FormatFloat(conf.DebtThreshold, 'f', -1, 64),
		KeyEmailDomain:  "vui.edu.vn",
		KeyDefaultMajor: "CNTT",
		KeyRetakePolicy: retakeKeepLatest,
	}
}

// Listing is every allowed setting with its label; unset settings render as "".
type Listing struct {
	Values map[string]string `json:"values"`
	Meta   map[string]string `json:"meta"`
}

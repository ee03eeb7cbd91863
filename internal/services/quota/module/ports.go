package module

import dom "repolyze/internal/services/quota/domain"

// Ports holds the ports exposed by the quota module
type Ports struct {
	Admitter dom.AdmitterPort
}

package engine

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// ContractVersion is the version of the descriptor contract this runtime
// emits. A host engine advertises the contract version it implements;
// CheckVersion gates attachment.
const ContractVersion = "v1.4.0"

// CheckVersion reports whether a host engine implementing the given contract
// version can consume descriptors produced by this runtime. The major
// version must match and the engine must not be older than the runtime's
// minor version.
func CheckVersion(engineVersion string) error {
	if !semver.IsValid(engineVersion) {
		return fmt.Errorf("engine: invalid contract version %q", engineVersion)
	}
	if semver.Major(engineVersion) != semver.Major(ContractVersion) {
		return fmt.Errorf("engine: contract major mismatch: runtime %s, engine %s",
			ContractVersion, engineVersion)
	}
	if semver.Compare(engineVersion, ContractVersion) < 0 {
		return fmt.Errorf("engine: contract %s is older than runtime %s",
			engineVersion, ContractVersion)
	}
	return nil
}

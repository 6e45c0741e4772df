package interval

// Library version parts, mirrored in the Version string.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionPatch = 0

	Version = "1.0.0"
)

// VersionNumber packs the version parts into a single integer so versions
// can be compared numerically: (major<<16)|(minor<<8)|patch.
func VersionNumber() int32 {
	return int32(VersionMajor<<16 | VersionMinor<<8 | VersionPatch)
}

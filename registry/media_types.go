package registry

// Media types for banks in OCI registries.
const (
	// ArtifactType identifies banks as an OCI 1.1 artifact type.
	ArtifactType = "application/vnd.aurb.bank.v1"

	// MediaTypeBank is the media type of the AURB blob layer.
	MediaTypeBank = "application/vnd.aurb.bank.v1.blob"

	// MediaTypeMetadata is the media type of the companion metadata layer.
	MediaTypeMetadata = "application/vnd.aurb.bank.v1.metadata+json"
)

// Manifest annotation keys.
const (
	AnnotationBankID      = "dev.aurb.bank.id"
	AnnotationBankVersion = "dev.aurb.bank.version"
)

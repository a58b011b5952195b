package ws

// Compressor is a plug-in point for a stream transform over message
// payloads (e.g. permessage-deflate, RFC 7692). The core deliberately does
// not implement deflate itself, and it never sets the RSV1 bit on outgoing
// frames — a Compressor that needs RSV1 semantics must be rejected by
// configuration validation rather than silently producing non-conformant
// frames.
type Compressor interface {
	Compress(payload []byte) ([]byte, error)
	Decompress(payload []byte) ([]byte, error)
}

// validateCompression rejects any configured Compressor, since this core
// has no RSV1/extension-negotiation machinery to drive one correctly yet.
func validateCompression(c Compressor) Outcome {
	if c == nil {
		return Outcome{Kind: OutcomeOK}
	}
	return Outcome{
		Kind:    OutcomeBadArgument,
		Message: "compression hook configured but permessage-deflate (RFC 7692) is not implemented by this core",
	}
}

package mailer

// TransportUsed names which hop delivered a message.
type TransportUsed string

const (
	TransportPrimary   TransportUsed = "primary"
	TransportSecondary TransportUsed = "secondary"
	TransportNone      TransportUsed = "none"
)

// Outcome is the result of one Send. Kind is empty when Delivered.
type Outcome struct {
	Delivered bool          `json:"delivered"`
	Transport TransportUsed `json:"transport"`
	Kind      ErrorKind     `json:"error_kind,omitempty"`
}

func delivered(t TransportUsed) Outcome {
	return Outcome{Delivered: true, Transport: t}
}

func failed(kind ErrorKind) Outcome {
	return Outcome{Transport: TransportNone, Kind: kind}
}

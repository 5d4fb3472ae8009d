package types

// ---- Service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Open requests ----

// OpenSessionRequest is the payload of <port>/open. Exactly one of
// DeviceCode, Device or Address is honoured, selected by Kind.
type OpenSessionRequest struct {
	Kind       OpenKind   `json:"kind"`
	DeviceCode DeviceCode `json:"device_code,omitempty"`
	Device     Device     `json:"device,omitempty"`
	Address    BusAddress `json:"address,omitempty"`
	Client     ClientInfo `json:"client"`
}

type OpenKind uint8

const (
	OpenByDeviceCode OpenKind = iota // OpenSession2
	OpenByDevice                     // OpenSession (legacy enum)
	OpenForDev                       // OpenSessionForDev
)

// OpenSessionReply answers an open. On failure Err holds the driver's error
// value unchanged.
type OpenSessionReply struct {
	OK          bool   `json:"ok"`
	SessionID   string `json:"session_id"`
	Intercepted bool   `json:"intercepted"`
	Err         error  `json:"-"`
}

// ---- Session requests ----

// Convention selects the buffer-passing style of a session call.
type Convention uint8

const (
	ConventionLegacy     Convention = iota // fixed, mapped buffers
	ConventionAutoSelect                   // auto-sized buffers
)

func (c Convention) String() string {
	if c == ConventionLegacy {
		return "legacy"
	}
	return "auto"
}

type SendRequest struct {
	Convention Convention        `json:"convention"`
	Data       []byte            `json:"data"`
	Option     TransactionOption `json:"option"`
}

type ReceiveRequest struct {
	Convention Convention        `json:"convention"`
	Size       int               `json:"size"`
	Option     TransactionOption `json:"option"`
	Buffer     []byte            `json:"buffer,omitempty"`
}

type ExecuteRequest struct {
	Convention  Convention `json:"convention"`
	ReceiveSize int        `json:"receive_size"`
	Commands    []byte     `json:"commands"`
	Receive     []byte     `json:"receive,omitempty"`
}

type RetryPolicyRequest struct {
	MaxRetryCount   int32 `json:"max_retry_count"`
	RetryIntervalUs int32 `json:"retry_interval_us"`
}

// TransactionReply carries the driver outcome verbatim. Err is the driver's
// error value, not a rendering of it.
type TransactionReply struct {
	Data []byte `json:"data,omitempty"`
	Err  error  `json:"-"`
}

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Diagnostics ----

type SessionInfo struct {
	ID          string     `json:"id"`
	Port        string     `json:"port"`
	DeviceCode  DeviceCode `json:"device_code"`
	DeviceName  string     `json:"device_name"`
	Address     string     `json:"address,omitempty"`
	Intercepted bool       `json:"intercepted"`
	ProgramID   ProgramID  `json:"program_id"`
}

type SessionsSnapshot struct {
	Sessions []SessionInfo `json:"sessions"`
}

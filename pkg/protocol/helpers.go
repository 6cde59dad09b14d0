package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewVariablesMessage creates a variables message
func NewVariablesMessage(seq uint64, values map[string]string) (*Message, error) {
	return NewMessage(TypeVariables, VariablesData{Seq: seq, Values: values})
}

// NewResultMessage creates the reply to a call. A nil err reports success.
func NewResultMessage(callID, function string, err error) (*Message, error) {
	data := ResultData{CallID: callID, Function: function, OK: err == nil}
	if err != nil {
		data.Error = err.Error()
	}
	return NewMessage(TypeResult, data)
}

// NewLogMessage creates a log message
func NewLogMessage(entry LogData) (*Message, error) {
	return NewMessage(TypeLog, entry)
}

// NewCallMessage creates a call message
func NewCallMessage(function string, args map[string]string) (*Message, error) {
	return NewMessage(TypeCall, CallData{Function: function, Args: args})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetVariablesData extracts a variable snapshot from a message
func (m *Message) GetVariablesData() (*VariablesData, error) {
	var data VariablesData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResultData extracts a call result from a message
func (m *Message) GetResultData() (*ResultData, error) {
	var data ResultData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLogData extracts a log record from a message
func (m *Message) GetLogData() (*LogData, error) {
	var data LogData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCallData extracts a call from a message
func (m *Message) GetCallData() (*CallData, error) {
	var data CallData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

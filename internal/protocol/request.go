package protocol

// Request is one decoded request. The concrete type selects the operation.
type Request interface {
	Code() Code
}

// ConfigureInput configures and starts a pulse input.
type ConfigureInput struct {
	Pin           uint32
	MinPulseWidth uint32
	MaxPulseCount uint32
	CountOnHigh   bool
}

// ResetCount overwrites a pulse count.
type ResetCount struct {
	Pin     uint32
	InitVal uint32
}

// ReadCount reads a pulse count.
type ReadCount struct{ Pin uint32 }

// ReadDutyTime reads accumulated on-time in seconds.
type ReadDutyTime struct{ Pin uint32 }

// ReadLevels reads every input level.
type ReadLevels struct{}

// ReadPinLevel reads one settled input level.
type ReadPinLevel struct{ Pin uint32 }

// ConfigureOutput configures an output controller.
type ConfigureOutput struct {
	Pin                uint32
	FunctionType       uint32
	RelationType       uint32
	RelationPort       int32 // -1 for none
	DefaultState       bool
	DriveState         bool
	DelayEnable        bool
	DriveCertainEnable bool
	DelayTime          uint32
	DriveTime          uint32
	PulseClock         uint32
	PulsePeriod        uint32
	PulseEffectiveTime uint32
}

// SetTrigger sets the input whose counted edges trigger an output.
type SetTrigger struct {
	Pin         uint32
	TriggerPort int32 // -1 clears
}

// TriggerNow triggers one output, or every running output when All is set.
type TriggerNow struct {
	Pin uint32
	All bool
}

// ReadVersion reads the firmware version string.
type ReadVersion struct{}

// Unknown carries a request code with no defined operation.
type Unknown struct{ Request Code }

func (ConfigureInput) Code() Code  { return CodeConfigureInput }
func (ResetCount) Code() Code      { return CodeResetCount }
func (ReadCount) Code() Code       { return CodeReadCount }
func (ReadDutyTime) Code() Code    { return CodeReadDutyTime }
func (ReadLevels) Code() Code      { return CodeReadLevels }
func (ReadPinLevel) Code() Code    { return CodeReadPinLevel }
func (ConfigureOutput) Code() Code { return CodeConfigureOutput }
func (SetTrigger) Code() Code      { return CodeSetTrigger }
func (TriggerNow) Code() Code      { return CodeTriggerNow }
func (ReadVersion) Code() Code     { return CodeReadVersion }
func (u Unknown) Code() Code       { return u.Request }

// Decode builds the request selected by h from its body.
// The body length must match the code exactly.
func Decode(h Header, body []byte) (Request, error) {
	if h.Len > MaxBodySize {
		return nil, errLength(h.Code, h.Len, MaxBodySize)
	}
	if int(h.Len) != len(body) {
		return nil, errShort("body", len(body), int(h.Len))
	}

	want := func(size int) error {
		if int(h.Len) != size {
			return errLength(h.Code, h.Len, size)
		}
		return nil
	}

	switch h.Code {
	case CodeConfigureInput:
		if err := want(sizeConfigureInput); err != nil {
			return nil, err
		}
		return ConfigureInput{
			Pin:           order.Uint32(body[0:]),
			MinPulseWidth: order.Uint32(body[4:]),
			MaxPulseCount: order.Uint32(body[8:]),
			CountOnHigh:   body[12] != 0,
		}, nil

	case CodeResetCount:
		if err := want(sizeResetCount); err != nil {
			return nil, err
		}
		return ResetCount{Pin: order.Uint32(body[0:]), InitVal: order.Uint32(body[4:])}, nil

	case CodeReadCount, CodeReadDutyTime, CodeReadPinLevel:
		if err := want(sizePin); err != nil {
			return nil, err
		}
		pin := order.Uint32(body)
		switch h.Code {
		case CodeReadCount:
			return ReadCount{Pin: pin}, nil
		case CodeReadDutyTime:
			return ReadDutyTime{Pin: pin}, nil
		}
		return ReadPinLevel{Pin: pin}, nil

	case CodeReadLevels:
		if err := want(0); err != nil {
			return nil, err
		}
		return ReadLevels{}, nil

	case CodeConfigureOutput:
		if err := want(sizeConfigureOutput); err != nil {
			return nil, err
		}
		return ConfigureOutput{
			Pin:                order.Uint32(body[0:]),
			FunctionType:       order.Uint32(body[4:]),
			RelationType:       order.Uint32(body[8:]),
			RelationPort:       int32(order.Uint32(body[12:])),
			DefaultState:       body[16] != 0,
			DriveState:         body[17] != 0,
			DelayEnable:        body[18] != 0,
			DriveCertainEnable: body[19] != 0,
			DelayTime:          order.Uint32(body[20:]),
			DriveTime:          order.Uint32(body[24:]),
			PulseClock:         order.Uint32(body[28:]),
			PulsePeriod:        order.Uint32(body[32:]),
			PulseEffectiveTime: order.Uint32(body[36:]),
		}, nil

	case CodeSetTrigger:
		if err := want(sizeSetTrigger); err != nil {
			return nil, err
		}
		return SetTrigger{Pin: order.Uint32(body[0:]), TriggerPort: int32(order.Uint32(body[4:]))}, nil

	case CodeTriggerNow:
		switch h.Len {
		case 0:
			return TriggerNow{All: true}, nil
		case sizePin:
			return TriggerNow{Pin: order.Uint32(body)}, nil
		}
		return nil, errLength(h.Code, h.Len, 0, sizePin)

	case CodeReadVersion:
		if err := want(0); err != nil {
			return nil, err
		}
		return ReadVersion{}, nil
	}

	return Unknown{Request: h.Code}, nil
}

// Encode returns the full frame (header and body) for req.
func Encode(req Request) []byte {
	var body []byte
	switch r := req.(type) {
	case ConfigureInput:
		body = make([]byte, sizeConfigureInput)
		order.PutUint32(body[0:], r.Pin)
		order.PutUint32(body[4:], r.MinPulseWidth)
		order.PutUint32(body[8:], r.MaxPulseCount)
		putBool(body[12:], r.CountOnHigh)
	case ResetCount:
		body = make([]byte, sizeResetCount)
		order.PutUint32(body[0:], r.Pin)
		order.PutUint32(body[4:], r.InitVal)
	case ReadCount:
		body = pinBody(r.Pin)
	case ReadDutyTime:
		body = pinBody(r.Pin)
	case ReadPinLevel:
		body = pinBody(r.Pin)
	case ConfigureOutput:
		body = make([]byte, sizeConfigureOutput)
		order.PutUint32(body[0:], r.Pin)
		order.PutUint32(body[4:], r.FunctionType)
		order.PutUint32(body[8:], r.RelationType)
		order.PutUint32(body[12:], uint32(r.RelationPort))
		putBool(body[16:], r.DefaultState)
		putBool(body[17:], r.DriveState)
		putBool(body[18:], r.DelayEnable)
		putBool(body[19:], r.DriveCertainEnable)
		order.PutUint32(body[20:], r.DelayTime)
		order.PutUint32(body[24:], r.DriveTime)
		order.PutUint32(body[28:], r.PulseClock)
		order.PutUint32(body[32:], r.PulsePeriod)
		order.PutUint32(body[36:], r.PulseEffectiveTime)
	case SetTrigger:
		body = make([]byte, sizeSetTrigger)
		order.PutUint32(body[0:], r.Pin)
		order.PutUint32(body[4:], uint32(r.TriggerPort))
	case TriggerNow:
		if !r.All {
			body = pinBody(r.Pin)
		}
	}

	h := Header{Code: req.Code(), Len: uint32(len(body))}
	return append(h.Bytes(), body...)
}

func pinBody(pin uint32) []byte {
	b := make([]byte, sizePin)
	order.PutUint32(b, pin)
	return b
}

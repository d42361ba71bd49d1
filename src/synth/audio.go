package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	fftSize         = 2048 // multiple of samplesPerCycle
	maxPendingNotes = 256
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample
const secPerSample = 1.0 / sampleRate

// ----- Utility ----- //

func now() float64 {
	return float64(time.Now().UnixNano()) / 1000 / 1000 / 1000
}

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

// ----- Changes ----- //

// Changes tracks which report groups are dirty for the UI side.
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// ----- Audio ----- //

type timedEvent struct {
	at    float64 // seconds, wall clock
	event noteEvent
}

// Audio connects the engine to the sound card. It renders one block per
// Read call; oto pulls Read from its playback loop, which is the real-time
// path, so Read takes no locks and allocates nothing.
type Audio struct {
	ctx        context.Context
	otoContext *oto.Context
	CommandCh  chan []string
	Changes    *Changes

	params *Params
	engine *Engine

	events  chan timedEvent
	pending []noteEvent

	left  []float64
	right []float64

	// output ring for visualization, time-ordered copies double-buffered
	// for the report loop
	out       []float64 // length: fftSize, mono mix
	pos       int64
	lastRead  float64
	vizFrames [2][]float64
	vizIndex  atomic.Int32
	fftResult []float64
	fft       *FFT
}

var _ io.Reader = (*Audio)(nil)

// NewAudio opens the audio device and starts the command loop.
func NewAudio() (*Audio, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	a := newAudioWithoutDevice()
	a.otoContext = otoContext
	return a, nil
}

func newAudioWithoutDevice() *Audio {
	params := NewParams()
	commandCh := make(chan []string, 256)
	a := &Audio{
		ctx:       context.Background(),
		CommandCh: commandCh,
		Changes:   &Changes{dict: make(map[string]struct{})},
		params:    params,
		engine:    NewEngine(params, sampleRate),
		events:    make(chan timedEvent, maxPendingNotes),
		pending:   make([]noteEvent, 0, maxPendingNotes),
		left:      make([]float64, samplesPerCycle),
		right:     make([]float64, samplesPerCycle),
		out:       make([]float64, fftSize),
		fftResult: make([]float64, fftSize),
		fft:       NewFFT(fftSize),
		lastRead:  now(),
	}
	a.vizFrames[0] = make([]float64, fftSize)
	a.vizFrames[1] = make([]float64, fftSize)
	go processCommands(a, commandCh)
	return a
}

func processCommands(audio *Audio, commandCh <-chan []string) {
	for command := range commandCh {
		if err := audio.update(command); err != nil {
			log.Printf("invalid command %v: %v\n", command, err)
		}
	}
	log.Println("processCommands() ended.")
}

func (a *Audio) update(command []string) error {
	switch command[0] {
	case "set":
		if len(command) != 4 {
			return fmt.Errorf("set expects <section> <key> <value>, got %v", command[1:])
		}
		if err := a.params.set(command[1], command[2], command[3]); err != nil {
			return err
		}
		a.Changes.Add("data")
		a.Changes.Add("spectrum")
	case "note_on":
		if len(command) < 2 {
			return fmt.Errorf("note_on expects <note> [velocity]")
		}
		note, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		velocity := 1.0
		if len(command) >= 3 {
			velocity, err = strconv.ParseFloat(command[2], 64)
			if err != nil {
				return err
			}
		}
		a.pushEvent(noteEvent{kind: eventNoteOn, note: int(note), velocity: velocity})
	case "note_off":
		if len(command) < 2 {
			return fmt.Errorf("note_off expects <note> [cut]")
		}
		note, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		kind := eventNoteOff
		if len(command) >= 3 && command[2] == "cut" {
			kind = eventNoteCut
		}
		a.pushEvent(noteEvent{kind: kind, note: int(note)})
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

func (a *Audio) pushEvent(event noteEvent) {
	select {
	case a.events <- timedEvent{at: now(), event: event}:
	default:
		log.Println("[WARN] note event dropped")
	}
}

// AddMidiEvent feeds a raw MIDI message (from rtmididrv or the on-screen
// keyboard) into the render path.
func (a *Audio) AddMidiEvent(data []byte) {
	if len(data) < 3 {
		return
	}
	status := data[0] >> 4
	if status == 8 || (status == 9 && data[2] == 0) {
		a.pushEvent(noteEvent{kind: eventNoteOff, note: int(data[1])})
	} else if status == 9 {
		a.pushEvent(noteEvent{kind: eventNoteOn, note: int(data[1]), velocity: float64(data[2]) / 127.0})
	}
}

// drainEvents converts queued events into in-block sample offsets. The
// drain is non-blocking; the audio thread never waits on the control side.
func (a *Audio) drainEvents() []noteEvent {
	a.pending = a.pending[:0]
	blockStart := a.lastRead
	for {
		select {
		case e := <-a.events:
			offset := int((e.at - blockStart) / secPerSample)
			if offset < 0 {
				offset = 0
			}
			if offset >= samplesPerCycle {
				offset = samplesPerCycle - 1
			}
			e.event.offset = offset
			a.pending = append(a.pending, e.event)
		default:
			return a.pending
		}
	}
}

func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	timestamp := now()
	bufSamples := len(buf) / bytesPerSample
	if bufSamples > samplesPerCycle {
		bufSamples = samplesPerCycle
	}
	left := a.left[:bufSamples]
	right := a.right[:bufSamples]

	events := a.drainEvents()
	a.engine.RenderEvents(events, left, right)
	writeBuffer(left, buf, 0)
	writeBuffer(right, buf, 1)

	// keep a mono mix in the ring and publish a time-ordered copy
	offset := a.pos % fftSize
	for i := 0; i < bufSamples; i++ {
		a.out[(offset+int64(i))%fftSize] = (left[i] + right[i]) * 0.5
	}
	a.pos += int64(bufSamples)
	a.publishVizFrame()
	a.lastRead = timestamp
	return bufSamples * bytesPerSample, nil
}

func (a *Audio) publishVizFrame() {
	next := 1 - a.vizIndex.Load()
	frame := a.vizFrames[next]
	// out:   | 4 | 1 | 2 | 3 |
	// frame: | 1 | 2 | 3 | 4 |
	offset := a.pos % fftSize
	copy(frame, a.out[offset:])
	copy(frame[fftSize-offset:], a.out[:offset])
	a.vizIndex.Store(next)
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i := 0; i < len(out); i++ {
		value := out[i]
		if value > 1 {
			value = 1
		}
		if value < -1 {
			value = -1
		}
		const max = 32767
		b := int16(value * max)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

// ----- Accessors ----- //

// Params exposes the shared parameter set for direct host integration.
func (a *Audio) Params() *Params {
	return a.params
}

// LoadWaveform analyzes PCM samples and publishes the resulting spectral
// envelope to the render path as an atomic snapshot.
func (a *Audio) LoadWaveform(samples []float64) {
	a.params.SetWaveEnvelope(AnalyzeSpectralEnvelope(samples))
	a.Changes.Add("data")
	a.Changes.Add("spectrum")
}

// GetFFT returns the magnitude spectrum of the last rendered output for
// display. Called from the report loop, never from the render path.
func (a *Audio) GetFFT() []float64 {
	frame := a.vizFrames[a.vizIndex.Load()]
	copy(a.fftResult, frame)
	Han(a.fftResult)
	a.fft.CalcAbs(a.fftResult)
	for i, value := range a.fftResult {
		a.fftResult[i] = value * 2 / fftSize
	}
	return a.fftResult[:fftSize/2]
}

// GetSpectrum returns the harmonic amplitudes of the first sounding voice,
// or the parameter preview when the engine is silent.
func (a *Audio) GetSpectrum() ([]float64, int) {
	set := a.engine.ActiveHarmonics()
	if set == nil {
		set = a.engine.PreviewHarmonics()
	}
	amplitudes := make([]float64, set.ActiveCount)
	copy(amplitudes, set.Amplitudes[:set.ActiveCount])
	return amplitudes, set.ActiveCount
}

// ----- JSON ----- //

type audioJSON struct {
	Params json.RawMessage `json:"params"`
}

// ApplyJSON restores persisted state.
func (a *Audio) ApplyJSON(data []byte) {
	var j audioJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		log.Println("failed to apply JSON to Audio", err)
		return
	}
	a.params.applyJSON(j.Params)
}

// ToJSON serializes state for persistence.
func (a *Audio) ToJSON() []byte {
	bytes, err := json.Marshal(toRawMessage(&audioJSON{
		Params: a.params.toJSON(),
	}))
	if err != nil {
		panic(err)
	}
	return bytes
}

// ----- Lifecycle ----- //

// Start blocks, feeding the player until ctx is canceled.
func (a *Audio) Start(ctx context.Context) error {
	p := a.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	a.ctx = ctx
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	close(a.CommandCh)
	if a.otoContext == nil {
		return nil
	}
	return a.otoContext.Close()
}

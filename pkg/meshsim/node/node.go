// Package node implements the half-duplex LoRa MAC state machine that is
// the core of the simulator: one Node per mesh participant, advanced one
// tick at a time by its owning driver.
package node

import (
	"math"
	"math/rand"

	"github.com/go-meshsim/meshsim/internal/simerr"
	"github.com/go-meshsim/meshsim/pkg/meshsim/message"
	"github.com/go-meshsim/meshsim/pkg/meshsim/modempreset"
	"github.com/go-meshsim/meshsim/pkg/meshsim/propagation"
	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
)

// RX_TIMEOUT is expressed as a multiple of the step interval: a reception
// with no update for that many ticks is purged as stale.
const rxTimeoutMultiplier = 3

// CW bounds for the contention window, in units of backoff slots.
const (
	cwMin = 3
	cwMax = 8
)

// defaultMinimalSNR is the default floor below which an incoming transmission
// isn't detected at all.
const defaultMinimalSNR = -20.0

type heardEntry struct {
	Count      int
	RSSI       float64
	SNR        float64
	SenderAddr uint32
	HopsAway   int
}

// Config configures a new Node. Model, Sink, Dir and Rng are shared,
// driver-owned dependencies injected at construction; everything else is
// this node's own static radio/behavior profile.
type Config struct {
	ID       uint32
	LongName string
	Position propagation.Point

	TxPowerDBm    float64
	NoiseLevelDBm float64
	FrequencyHz   float64
	Mode          modempreset.Mode
	Role          Role
	HopStart      int

	NodeInfoIntervalUS int64
	PositionIntervalUS int64
	TextMinIntervalUS  int64
	TextMaxIntervalUS  int64

	MinimalSNR    float64 // 0 means "use default"
	QueueCapacity int     // 0 means "use default (20)"

	Model propagation.Model
	Sink  simevent.Sink
	Rng   *rand.Rand
}

// Node is one mesh participant's MAC state machine.
type Node struct {
	id       uint32
	longName string
	position propagation.Point

	txPowerDBm    float64
	noiseLevelDBm float64
	frequencyHz   float64
	mode          modempreset.Mode
	preset        modempreset.Preset
	role          Role
	hopStart      int

	nodeInfoIntervalUS int64
	positionIntervalUS int64
	textMinIntervalUS  int64
	textMaxIntervalUS  int64
	minimalSNR         float64

	model propagation.Model
	sink  simevent.Sink
	rng   *rand.Rand
	dir   Directory

	currentTimeUS int64
	state         State
	stateChanged  bool

	queue    *txQueue
	txBuffer *message.Message

	backoffTimeUS     int64
	txTimeRemainingUS int64

	backoffStartTimeUS int64
	rxStartTimeUS      int64
	txStartTimeUS      int64

	currentlyReceiving *rxMultiplexer
	messagesHeard      map[uint32]*heardEntry
	knownNodes         map[uint32]struct{}
	txOriginList       []uint32

	lastNodeInfoTimeUS int64
	lastPositionTimeUS int64
	lastTextTimeUS     int64

	rxSuccess, rxFail, rxDups, rxUnicast       int
	txDone, forwarded, txCancelled             int
	collisionsCaused, txOrigin, msgsConfirmed  int
	txTimeSumUS, rxTimeSumUS, backoffTimeSumUS int64
	txUtil, airUtil                            float64
}

// New constructs a Node in its initial IDLE state. Beacon clocks are seeded
// to a uniform random offset in [0, interval) so nodes sharing an interval
// don't beacon in lockstep (spec §4.3).
func New(cfg Config) (*Node, error) {
	if cfg.HopStart < 0 || cfg.HopStart > 7 {
		return nil, simerr.NewConfig("hop_start %d out of range [0,7] for node %d", cfg.HopStart, cfg.ID)
	}
	if cfg.Rng == nil {
		return nil, simerr.NewConfig("node %d: no RNG supplied", cfg.ID)
	}
	if cfg.Model == nil {
		return nil, simerr.NewConfig("node %d: no propagation model supplied", cfg.ID)
	}

	minSNR := cfg.MinimalSNR
	if minSNR == 0 {
		minSNR = defaultMinimalSNR
	}

	n := &Node{
		id:                 cfg.ID,
		longName:           cfg.LongName,
		position:           cfg.Position,
		txPowerDBm:         cfg.TxPowerDBm,
		noiseLevelDBm:      cfg.NoiseLevelDBm,
		frequencyHz:        cfg.FrequencyHz,
		mode:               cfg.Mode,
		preset:             cfg.Mode.Preset(),
		role:               cfg.Role,
		hopStart:           cfg.HopStart,
		nodeInfoIntervalUS: cfg.NodeInfoIntervalUS,
		positionIntervalUS: cfg.PositionIntervalUS,
		textMinIntervalUS:  cfg.TextMinIntervalUS,
		textMaxIntervalUS:  cfg.TextMaxIntervalUS,
		minimalSNR:         minSNR,
		model:              cfg.Model,
		sink:               cfg.Sink,
		rng:                cfg.Rng,
		state:              Idle,
		stateChanged:        true,
		queue:              newTxQueue(cfg.QueueCapacity),
		currentlyReceiving: newRxMultiplexer(),
		messagesHeard:      make(map[uint32]*heardEntry),
		knownNodes:         make(map[uint32]struct{}),
		lastTextTimeUS:     -1,
	}

	if n.nodeInfoIntervalUS > 0 {
		n.lastNodeInfoTimeUS = n.rng.Int63n(n.nodeInfoIntervalUS)
	} else {
		n.lastNodeInfoTimeUS = -1
	}
	if n.positionIntervalUS > 0 {
		n.lastPositionTimeUS = n.rng.Int63n(n.positionIntervalUS)
	} else {
		n.lastPositionTimeUS = -1
	}

	return n, nil
}

// SetDirectory binds the non-owning peer registry. Called once by the
// driver after every node in a run has been constructed.
func (n *Node) SetDirectory(d Directory) { n.dir = d }

// --- Handle / Peer implementation -----------------------------------------

func (n *Node) ID() uint32                      { return n.id }
func (n *Node) Position() propagation.Point     { return n.position }
func (n *Node) TxPowerDBm() float64             { return n.txPowerDBm }
func (n *Node) FrequencyHz() float64            { return n.frequencyHz }
func (n *Node) Role() Role                      { return n.role }
func (n *Node) State() State                    { return n.state }
func (n *Node) LongName() string                { return n.longName }

// BlameCollision attributes a collision to this node: called on the later
// of two overlapping transmitters, per spec §4.4.
func (n *Node) BlameCollision() { n.collisionsCaused++ }

// MessageConfirmed records that some receiver finished hearing a message
// this node originated.
func (n *Node) MessageConfirmed() { n.msgsConfirmed++ }

// --- accessors used by summary/logging ------------------------------------

func (n *Node) Snapshot() simevent.NodeEvent {
	return simevent.NodeEvent{
		Time:              n.currentTimeUS,
		NodeID:            n.id,
		LongName:          n.longName,
		Role:              n.role.String(),
		Position:          [3]float64{n.position.X, n.position.Y, n.position.Z},
		TxPower:           n.txPowerDBm,
		NoiseLevel:        n.noiseLevelDBm,
		FrequencyHz:       n.frequencyHz,
		LoRaMode:          n.mode.String(),
		State:             n.state.String(),
		BackoffTimeUS:     n.backoffTimeUS,
		MessageQueueLen:   n.queue.len(),
		MessagesHeard:     len(n.messagesHeard),
		KnownNodes:        len(n.knownNodes),
		RxSuccess:         n.rxSuccess,
		RxFail:            n.rxFail,
		RxDups:            n.rxDups,
		RxUnicast:         n.rxUnicast,
		TxDone:            n.txDone,
		Forwarded:         n.forwarded,
		TxCancelled:       n.txCancelled,
		CollisionsCaused:  n.collisionsCaused,
		TxOrigin:          n.txOrigin,
		MessagesConfirmed: n.msgsConfirmed,
		TxTimeSumUS:       n.txTimeSumUS,
		RxTimeSumUS:       n.rxTimeSumUS,
		BackoffTimeSumUS:  n.backoffTimeSumUS,
		TxUtil:            n.txUtil,
		AirUtil:           n.airUtil,
	}
}

func (n *Node) Summary() simevent.SummaryEvent {
	return simevent.SummaryEvent{
		NodeID:            n.id,
		LongName:          n.longName,
		Role:              n.role.String(),
		TxOrigin:          n.txOrigin,
		MessagesConfirmed: n.msgsConfirmed,
		RxSuccess:         n.rxSuccess,
		RxFail:            n.rxFail,
		RxDups:            n.rxDups,
		RxUnicast:         n.rxUnicast,
		Forwarded:         n.forwarded,
		TxCancelled:       n.txCancelled,
		CollisionsCaused:  n.collisionsCaused,
		TxUtil:            n.txUtil,
		AirUtil:           n.airUtil,
	}
}

// Enqueue pushes a pre-built message onto the node's outbound queue,
// silently dropping it if the queue is full (spec §3). It lets callers
// inject externally-sourced traffic (the driver package itself never calls
// it); internally generated beacons and forwarded messages are pushed onto
// the same queue.
func (n *Node) Enqueue(m *message.Message) bool { return n.queue.push(m) }

func (n *Node) logNodeRow() {
	if n.sink == nil {
		return
	}
	_ = n.sink.LogNode(n.Snapshot())
}

func (n *Node) logMessageRow(other uint32, rssi, snr float64, collision, complete bool, msg *message.Message) {
	if n.sink == nil {
		return
	}
	_ = n.sink.LogMessage(simevent.MessageEvent{
		Timestamp: n.currentTimeUS,
		Msg:       msg,
		TxNode:    other,
		RxNode:    n.id,
		RSSI:      rssi,
		SNR:       snr,
		Collision: collision,
		Complete:  complete,
	})
}

func (n *Node) logBackoffRow(rebroadcast bool, snr float64, cwSize int, backoff int64) {
	if n.sink == nil {
		return
	}
	_ = n.sink.LogBackoff(simevent.BackoffEvent{
		Time:              n.currentTimeUS,
		NodeID:            n.id,
		LongName:          n.longName,
		Role:              n.role.String(),
		TxUtil:            n.txUtil,
		AirUtil:           n.airUtil,
		Rebroadcast:       rebroadcast,
		SNR:               snr,
		CWSize:            cwSize,
		CalculatedBackoff: backoff,
	})
}

// --- backoff math (spec §4.3) ----------------------------------------------

func (n *Node) slotTimeUS() float64 {
	return 2.5*n.preset.SymbolTimeUS() + 7600
}

// linearMapRound clamps value into [inMin,inMax] then linearly maps it into
// [outMin,outMax], rounding to the nearest integer. Mirrors the KSSM
// prototype's valmap().
func linearMapRound(value, inMin, inMax, outMin, outMax float64) int {
	if value > inMax {
		value = inMax
	}
	if value < inMin {
		value = inMin
	}
	return int(math.Round(outMin + (outMax-outMin)*((value-inMin)/(inMax-inMin))))
}

func cwSizeFromSNR(snr float64) int {
	return linearMapRound(snr, -20, 10, cwMin, cwMax)
}

func (n *Node) cwSizeFromChannelUtil() int {
	return linearMapRound(n.airUtil*100, 0, 100, cwMin, cwMax)
}

// calculateBackoffTime implements spec §4.3's three-way split: fresh
// originations draw from a window sized by channel utilization; rebroadcast
// by a ROUTER/REPEATER draws from a window sized by SNR; every other
// rebroadcaster defers past the full CWmax range first.
func (n *Node) calculateBackoffTime(rebroadcast bool, snr float64) int64 {
	slot := n.slotTimeUS()
	var cwSize int
	var backoff int64

	switch {
	case !rebroadcast:
		cwSize = n.cwSizeFromChannelUtil()
		backoff = int64(float64(n.rng.Int63n(int64(math.Pow(2, float64(cwSize)))+1)) * slot)
	case n.role == Router || n.role == Repeater:
		cwSize = cwSizeFromSNR(snr)
		backoff = int64(float64(n.rng.Int63n(2*int64(cwSize)+1)) * slot)
	default:
		cwSize = cwSizeFromSNR(snr)
		backoff = int64(2*float64(cwMax)*slot) + int64(float64(n.rng.Int63n(int64(math.Pow(2, float64(cwSize)))+1))*slot)
	}

	n.logBackoffRow(rebroadcast, snr, cwSize, backoff)
	return backoff
}

// calculateWorstBackoffTime is the deterministic upper bound used to defer
// a ROUTER_LATE's pending transmission when a duplicate arrives mid-backoff
// (spec §4.5's ROUTER_LATE special case).
func (n *Node) calculateWorstBackoffTime(snr float64) int64 {
	slot := n.slotTimeUS()
	cwSize := cwSizeFromSNR(snr)
	backoff := int64(2*float64(cwMax)*slot) + int64(math.Pow(2, float64(cwSize))*slot)
	n.logBackoffRow(true, snr, cwSize, backoff)
	return backoff
}

// cachingModel is implemented by propagation.CachedModel. Node narrows to it
// opportunistically so tests can still wire a bare propagation.Model.
type cachingModel interface {
	PathLossByID(txID, rxID uint32, tx, rx propagation.Point, freqHz float64) (float64, error)
}

func (n *Node) pathLossFrom(informer Handle) (float64, error) {
	if cm, ok := n.model.(cachingModel); ok {
		return cm.PathLossByID(informer.ID(), n.id, informer.Position(), n.position, n.frequencyHz)
	}
	return n.model.PathLoss(informer.Position(), n.position, n.frequencyHz)
}

// --- state transition table (spec §4) --------------------------------------

func (n *Node) changeState(to State) error {
	from := n.state
	switch {
	case from == Idle && to == RxBusy:
		n.rxStartTimeUS = n.currentTimeUS
	case from == Idle && to == WaitingToTx:
		n.backoffStartTimeUS = n.currentTimeUS
	case from == WaitingToTx && to == TxBusy:
		n.backoffTimeSumUS += n.currentTimeUS - n.backoffStartTimeUS
		n.txStartTimeUS = n.currentTimeUS
	case from == WaitingToTx && to == Idle:
		n.backoffTimeSumUS += n.currentTimeUS - n.backoffStartTimeUS
	case from == WaitingToTx && to == RxBusy:
		n.backoffTimeSumUS += n.currentTimeUS - n.backoffStartTimeUS
		n.rxStartTimeUS = n.currentTimeUS
	case from == TxBusy && to == Idle:
		n.txTimeSumUS += n.currentTimeUS - n.txStartTimeUS
	case from == RxBusy && to == Idle:
		n.rxTimeSumUS += n.currentTimeUS - n.rxStartTimeUS
	case from == RxBusy && to == WaitingToTx:
		n.rxTimeSumUS += n.currentTimeUS - n.rxStartTimeUS
		n.backoffStartTimeUS = n.currentTimeUS
	case from == RxBusy && to == RxBusy:
		// a second overlapping transmitter arrived while already receiving.
	default:
		return simerr.NewInvariant(n.id, from.String(), to.String(), "illegal MAC state transition")
	}
	n.state = to
	n.stateChanged = true
	return nil
}

// --- message generation (spec §4.3) -----------------------------------------

func (n *Node) randLen(min, max int) int {
	return min + n.rng.Intn(max-min+1)
}

func (n *Node) originate(msg *message.Message) {
	if n.queue.push(msg) {
		n.txOrigin++
		n.txOriginList = append(n.txOriginList, msg.ID)
	}
}

func (n *Node) messageGenerator() {
	if n.state == Idle && !n.role.IsHidden() {
		var built *message.Message
		switch {
		case n.nodeInfoIntervalUS > 0 && n.currentTimeUS > n.lastNodeInfoTimeUS+n.nodeInfoIntervalUS:
			if m, err := message.New(message.Options{
				Type: message.NodeInfo, Length: n.randLen(25, 50), HopStart: n.hopStart,
				SenderAddr: n.id, Preset: n.preset, Rng: n.rng,
			}); err == nil {
				built = m
			}
		case n.positionIntervalUS > 0 && n.currentTimeUS > n.lastPositionTimeUS+n.positionIntervalUS:
			if m, err := message.New(message.Options{
				Type: message.Position, Length: n.randLen(30, 70), HopStart: n.hopStart,
				SenderAddr: n.id, Preset: n.preset, Rng: n.rng,
			}); err == nil {
				built = m
			}
		}
		if built != nil {
			n.originate(built)
		}
	}

	if n.textMaxIntervalUS > 0 && n.textMinIntervalUS < n.textMaxIntervalUS {
		if n.lastTextTimeUS < 0 {
			n.lastTextTimeUS = n.textMinIntervalUS + n.rng.Int63n(n.textMaxIntervalUS-n.textMinIntervalUS+1)
		}
		if n.currentTimeUS > n.lastTextTimeUS {
			if m, err := message.New(message.Options{
				Type: message.Text, Length: n.randLen(20, 100), HopStart: n.hopStart,
				SenderAddr: n.id, Preset: n.preset, Rng: n.rng,
			}); err == nil {
				n.originate(m)
			}
			n.lastTextTimeUS += n.textMinIntervalUS + n.rng.Int63n(n.textMaxIntervalUS-n.textMinIntervalUS+1)
		}
	}
}

// --- reception outcome handling (spec §4.5) ---------------------------------

// processReceived is invoked once, the first time a message's id is heard
// complete by this node. Duplicate hearings are instead folded into
// messagesHeard by Inform directly.
func (n *Node) processReceived(msg *message.Message, rssi, snr float64) {
	if msg.SenderAddr == n.id {
		// hearing our own originated message echoed back by a forwarding
		// neighbor; not a new hearing, nothing to forward.
		return
	}

	n.messagesHeard[msg.ID] = &heardEntry{
		Count:      1,
		RSSI:       rssi,
		SNR:        snr,
		SenderAddr: msg.SenderAddr,
		HopsAway:   msg.HopStart - msg.HopLimit,
	}
	n.knownNodes[msg.SenderAddr] = struct{}{}

	if p, ok := n.dir.Peer(msg.SenderAddr); ok {
		p.MessageConfirmed()
	}

	if msg.DestAddr == n.id {
		n.rxUnicast++
		return
	}

	if n.role.IsForwarder() && msg.HopLimit > 0 {
		fwd := msg.Clone()
		fwd.HopLimit--
		n.queue.push(fwd)
	}
}

// noteDuplicate handles every hearing after the first: duplicate counting,
// and the contention reactions of §4.5 for a pending rebroadcast of the
// same message: ROUTER_LATE resets its backoff to the deterministic
// worst-case value, the other unconditional forwarders keep theirs
// unchanged, and every other role cancels the rebroadcast outright.
func (n *Node) noteDuplicate(entry *heardEntry, msg *message.Message) {
	entry.Count++
	n.rxDups++

	if n.txBuffer == nil || n.txBuffer.ID != msg.ID || n.backoffTimeUS <= 0 {
		return
	}

	if n.role == RouterLate {
		n.backoffTimeUS = n.calculateWorstBackoffTime(entry.SNR)
		return
	}

	if !n.role.IsUnconditionalForwarder() {
		n.txBuffer = nil
		n.backoffTimeUS = 0
		n.txCancelled++
	}
}

// --- per-tick driving --------------------------------------------------------

// Step advances the node's clock by stepIntervalUS and runs one iteration
// of the MAC state machine, including informing every peer if this node is
// presently transmitting.
func (n *Node) Step(stepIntervalUS int64) error {
	n.currentTimeUS += stepIntervalUS
	n.messageGenerator()

	switch n.state {
	case Idle:
		if n.txBuffer == nil {
			if msg, ok := n.queue.pop(); ok {
				n.txBuffer = msg
				rebroadcast := msg.SenderAddr != n.id
				snr := 0.0
				if e, ok := n.messagesHeard[msg.ID]; ok {
					snr = e.SNR
				}
				if rebroadcast {
					n.forwarded++
				}
				n.backoffTimeUS = n.calculateBackoffTime(rebroadcast, snr)
				if err := n.changeState(WaitingToTx); err != nil {
					return err
				}
			}
		}

	case WaitingToTx:
		if n.txBuffer != nil {
			n.backoffTimeUS -= stepIntervalUS
			if n.backoffTimeUS <= 0 {
				n.backoffTimeUS = 0
				if n.currentlyReceiving.len() == 0 {
					n.txTimeRemainingUS = int64(n.txBuffer.TxTimeUS)
					heard, heardOK := n.messagesHeard[n.txBuffer.ID]
					if heardOK && heard.Count > 1 && !n.role.IsUnconditionalForwarder() {
						n.txBuffer = nil
						n.txCancelled++
						if err := n.changeState(Idle); err != nil {
							return err
						}
					} else if err := n.changeState(TxBusy); err != nil {
						return err
					}
				}
			}
		}

	case TxBusy:
		n.txTimeRemainingUS -= stepIntervalUS
		if err := n.informNeighbors(stepIntervalUS); err != nil {
			return err
		}
		if n.txTimeRemainingUS <= 0 {
			switch n.txBuffer.Type {
			case message.NodeInfo:
				n.lastNodeInfoTimeUS = n.currentTimeUS
			case message.Position:
				n.lastPositionTimeUS = n.currentTimeUS
			}
			n.txBuffer = nil
			n.txDone++
			if err := n.changeState(Idle); err != nil {
				return err
			}
		}

	case RxBusy:
		n.purgeTimedOut(stepIntervalUS)
		if n.currentlyReceiving.len() == 0 {
			next := Idle
			if n.backoffTimeUS > 0 {
				next = WaitingToTx
			}
			if err := n.changeState(next); err != nil {
				return err
			}
		}
	}

	if n.currentTimeUS > 0 {
		n.txUtil = float64(n.txTimeSumUS) / float64(n.currentTimeUS)
		n.airUtil = float64(n.txTimeSumUS+n.rxTimeSumUS) / float64(n.currentTimeUS)
	}

	if n.stateChanged {
		n.logNodeRow()
		n.stateChanged = false
	}
	return nil
}

func (n *Node) informNeighbors(stepIntervalUS int64) error {
	if n.dir == nil {
		return nil
	}
	for _, p := range n.dir.Peers() {
		if p.ID() == n.id {
			continue
		}
		if err := p.Inform(n, n.txBuffer, stepIntervalUS); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) purgeTimedOut(stepIntervalUS int64) {
	threshold := n.currentTimeUS - rxTimeoutMultiplier*stepIntervalUS
	var stale []uint32
	n.currentlyReceiving.each(func(id uint32, e *rxEntry) {
		if e.LastHeardUS < threshold {
			stale = append(stale, id)
		}
	})
	for _, id := range stale {
		e, _ := n.currentlyReceiving.get(id)
		n.logMessageRow(id, 0, 0, e.CollisionUS > 0, false, e.Msg)
		n.rxFail++
		n.currentlyReceiving.delete(id)
	}
}

// Inform is called by a transmitting peer on every tick it is TX_BUSY. It
// implements spec §4.4: detection, collision accounting, and completion.
func (n *Node) Inform(informer Handle, msg *message.Message, stepIntervalUS int64) error {
	if n.state == TxBusy {
		return nil // half-duplex: can't receive while transmitting.
	}

	pathLoss, err := n.pathLossFrom(informer)
	if err != nil {
		return err
	}
	rssi := propagation.RSSI(informer.TxPowerDBm(), pathLoss)
	snr := propagation.SNR(rssi, n.noiseLevelDBm)
	if snr <= n.minimalSNR {
		return nil
	}

	entry, exists := n.currentlyReceiving.get(informer.ID())
	if exists {
		entry.RxTimeUS += stepIntervalUS
		entry.LastHeardUS = n.currentTimeUS
	} else {
		if n.currentlyReceiving.len() != 0 {
			informer.BlameCollision()
		}
		entry = &rxEntry{RxTimeUS: stepIntervalUS, Msg: msg, LastHeardUS: n.currentTimeUS}
		n.currentlyReceiving.set(informer.ID(), entry)
		if err := n.changeState(RxBusy); err != nil {
			return err
		}
	}

	if n.currentlyReceiving.len() > 1 {
		n.currentlyReceiving.each(func(_ uint32, e *rxEntry) {
			e.CollisionUS += stepIntervalUS
		})
	}

	if entry.RxTimeUS < int64(entry.Msg.TxTimeUS) {
		return nil
	}

	collision := entry.CollisionUS > 0
	if collision {
		n.rxFail++
	} else {
		n.rxSuccess++
	}
	n.logMessageRow(informer.ID(), rssi, snr, collision, true, entry.Msg)
	n.currentlyReceiving.delete(informer.ID())

	if !collision {
		if dup, ok := n.messagesHeard[entry.Msg.ID]; ok {
			n.noteDuplicate(dup, entry.Msg)
		} else {
			n.processReceived(entry.Msg.Clone(), rssi, snr)
		}
	}

	if n.currentlyReceiving.len() == 0 {
		next := Idle
		if n.backoffTimeUS > 0 {
			next = WaitingToTx
		}
		return n.changeState(next)
	}
	return nil
}

package simlog

import (
	"strconv"

	"github.com/go-meshsim/meshsim/pkg/meshsim/simevent"
)

func boolCol(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func hexCol(v uint32) string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func i(v int) string {
	return strconv.Itoa(v)
}

func i64(v int64) string {
	return strconv.FormatInt(v, 10)
}

// LogMessage appends one row to messages.csv. Satisfies simevent.Sink.
func (l *Logger) LogMessage(e simevent.MessageEvent) error {
	row := []string{
		i64(e.Timestamp),
		hexCol(e.Msg.ID),
		hexCol(e.Msg.SenderAddr),
		hexCol(e.Msg.DestAddr),
		e.Msg.Type.String(),
		i(e.Msg.Length),
		i(e.Msg.TxTimeUS),
		i(e.Msg.HopStart),
		i(e.Msg.HopLimit),
		hexCol(e.TxNode),
		hexCol(e.RxNode),
		f(e.RSSI),
		f(e.SNR),
		boolCol(e.Collision),
		boolCol(e.Complete),
	}
	return l.messages.writeRow(row)
}

// LogNode appends one row to nodes.csv. Satisfies simevent.Sink.
func (l *Logger) LogNode(e simevent.NodeEvent) error {
	row := []string{
		i64(e.Time),
		hexCol(e.NodeID),
		e.LongName,
		e.Role,
		"(" + f(e.Position[0]) + ", " + f(e.Position[1]) + ", " + f(e.Position[2]) + ")",
		f(e.TxPower),
		f(e.NoiseLevel),
		f(e.FrequencyHz),
		e.LoRaMode,
		e.State,
		i64(e.BackoffTimeUS),
		i(e.MessageQueueLen),
		i(e.MessagesHeard),
		i(e.KnownNodes),
		i(e.RxSuccess),
		i(e.RxFail),
		i(e.RxDups),
		i(e.RxUnicast),
		i(e.TxDone),
		i(e.Forwarded),
		i(e.TxCancelled),
		i(e.CollisionsCaused),
		i(e.TxOrigin),
		i(e.MessagesConfirmed),
		i64(e.TxTimeSumUS),
		i64(e.RxTimeSumUS),
		i64(e.BackoffTimeSumUS),
		f(e.TxUtil),
		f(e.AirUtil),
	}
	return l.nodes.writeRow(row)
}

// LogBackoff appends one row to backoff.csv. Satisfies simevent.Sink.
func (l *Logger) LogBackoff(e simevent.BackoffEvent) error {
	row := []string{
		i64(e.Time),
		hexCol(e.NodeID),
		e.LongName,
		e.Role,
		f(e.TxUtil),
		f(e.AirUtil),
		boolCol(e.Rebroadcast),
		f(e.SNR),
		i(e.CWSize),
		i64(e.CalculatedBackoff),
	}
	return l.backoff.writeRow(row)
}

// LogSummary appends one row to summary.csv.
func (l *Logger) LogSummary(e simevent.SummaryEvent) error {
	row := []string{
		hexCol(e.NodeID),
		e.LongName,
		e.Role,
		i(e.TxOrigin),
		i(e.MessagesConfirmed),
		i(e.RxSuccess),
		i(e.RxFail),
		i(e.RxDups),
		i(e.RxUnicast),
		i(e.Forwarded),
		i(e.TxCancelled),
		i(e.CollisionsCaused),
		f(e.TxUtil),
		f(e.AirUtil),
	}
	return l.summary.writeRow(row)
}

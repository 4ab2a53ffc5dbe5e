package capture

import (
	"fmt"
	"shadowswap/util"
	"shadowswap/wire"
)

const TableHeader = "" +
	"----+--------------+---------+------------+-----+------------------------------------\n" +
	"Dir | Time         | Tag     | Tick       | Len | Fields                             \n" +
	"----+--------------+---------+------------+-----+------------------------------------\n"

// FormatRecord renders one table row. Datagrams that do not decode are shown as hex.
func FormatRecord(rec Record) string {
	arrow := " <-"
	if rec.Direction == DirectionOut {
		arrow = " ->"
	}

	tag, tick, fields := "??", "-", ""
	msg, err := wire.Decode(rec.Data)
	if err != nil {
		if len(rec.Data) > 0 {
			tag = wire.TagToString(rec.Data[0])
		}
		fields = fmt.Sprintf("%v [%s]", err, util.DataToHex(rec.Data))
	} else {
		tag = wire.TagToString(msg.GetTag())
		tick = fmt.Sprintf("%d", msg.GetTick())
		fields = describe(msg)
	}

	return fmt.Sprintf("%3s | %-12s | %-7s | %-10s | %-3d | %s\n",
		arrow,
		rec.Time.UTC().Format("15:04:05.000"),
		tag,
		tick,
		len(rec.Data),
		fields,
	)
}

func describe(msg wire.Message) string {
	switch m := msg.(type) {
	case *wire.PlayerUpdate:
		return fmt.Sprintf("player=%s pos=(%.1f, %.1f) vel=(%.2f, %.2f)",
			m.Player, m.Position.X, m.Position.Y, m.Velocity.X, m.Velocity.Y)
	case *wire.ShadowUpdate:
		return fmt.Sprintf("owner=%s pos=(%.1f, %.1f)", m.Owner, m.Position.X, m.Position.Y)
	case *wire.ObjectUpdate:
		return fmt.Sprintf("pos=(%.1f, %.1f) vel=(%.2f, %.2f)",
			m.Position.X, m.Position.Y, m.Velocity.X, m.Velocity.Y)
	case *wire.ScoreUpdate:
		return fmt.Sprintf("player=%s score=%d", m.Player, m.Score)
	case *wire.PhaseChange:
		return fmt.Sprintf("phase=%s", m.Phase)
	case *wire.ResetRequest:
		return ""
	case *wire.SwapRequest:
		return fmt.Sprintf("player=%s", m.Player)
	case *wire.InverseUpdate:
		return fmt.Sprintf("active=%t remaining=%.2f", m.Active, m.Remaining)
	default:
		return fmt.Sprintf("%T", msg)
	}
}

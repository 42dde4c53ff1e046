package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abruno-tek/Oscope-automation/internal/domain"
)

// Options selects the channel and the optional steps of a run.
type Options struct {
	Channel        domain.Channel
	OPCTimeout     time.Duration
	CheckErrors    bool
	ForceTrigger   bool
	Measurements   []string
	AFG            bool
	AFGFrequencyHz float64

	SkipPrompt    bool
	PromptMessage string
	PlotTitle     string
}

func (o Options) withDefaults() Options {
	if !o.Channel.Valid() {
		o.Channel = 1
	}
	if o.OPCTimeout <= 0 {
		o.OPCTimeout = 30 * time.Second
	}
	if o.AFG && o.AFGFrequencyHz <= 0 {
		o.AFGFrequencyHz = 1000
	}
	if o.PromptMessage == "" {
		o.PromptMessage = fmt.Sprintf("ACTION\nConnect probe to Oscilloscope Channel %d and the Probe Compensation Signal.\nPress Enter to continue....", int(o.Channel))
	}
	if o.PlotTitle == "" {
		o.PlotTitle = "Simple Plot"
	}
	return o
}

// ConfigureSequence resets the instrument, shows and triggers on the
// channel, runs autoset and registers any measurements.
func ConfigureSequence(o Options) []domain.Command {
	o = o.withDefaults()
	ch := o.Channel.SCPI()

	cmds := []domain.Command{domain.SyncWrite("*RST")}
	if o.AFG {
		cmds = append(cmds,
			domain.Write("AFG:FREQUENCY "+strconv.FormatFloat(o.AFGFrequencyHz, 'g', -1, 64)),
			domain.SyncWrite("AFG:OUTPUT:MODE CONTINUOUS"),
		)
	}
	cmds = append(cmds,
		domain.Write("DISPLAY:WAVEVIEW1:"+ch+":STATE ON"),
		domain.Write("TRIGGER:A:TYPE EDGE"),
		domain.SyncWrite("TRIGGER:A:EDGE:SOURCE "+ch),
		domain.SyncWrite("AUTOSET EXECUTE"),
	)
	for i, m := range o.Measurements {
		c := domain.Write("MEASUREMENT:ADDMEAS " + strings.ToUpper(m))
		c.Sync = i == len(o.Measurements)-1
		cmds = append(cmds, c)
	}
	return cmds
}

// AcquireSequence arms and runs a single-sequence acquisition. The final
// operation-complete wait returns once the record is captured.
func AcquireSequence(o Options) []domain.Command {
	cmds := []domain.Command{
		domain.Write("ACQUIRE:STATE 0"),
		domain.Write("ACQUIRE:STOPAFTER SEQUENCE"),
		domain.Write("ACQUIRE:STATE 1"),
	}
	if o.ForceTrigger {
		cmds = append(cmds, domain.Write("TRIGGER FORCE"))
	}
	cmds[len(cmds)-1].Sync = true
	return cmds
}

// RestoreSequence puts the instrument back into continuous acquisition.
func RestoreSequence() []domain.Command {
	return []domain.Command{domain.SyncWrite("ACQUIRE:STOPAFTER RUNSTOP")}
}

// MeasurementQuery returns the mean-of-current-acquisition query for the
// i-th (1-based) added measurement.
func MeasurementQuery(i int) string {
	return fmt.Sprintf("MEASUREMENT:MEAS%d:RESULTS:CURRENTACQ:MEAN?", i)
}

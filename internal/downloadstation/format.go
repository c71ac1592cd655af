package downloadstation

import (
	"fmt"
	"math"
)

// Presentation helpers for tasks. These are mechanical projections of
// the snapshot data; nothing here touches the network.

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with decimal (SI) units and two
// decimals, e.g. 1234567890 -> "1.23 GB".
func FormatBytes(n int64) string {
	value := float64(n)
	unit := 0
	for value >= 1000 && unit < len(byteUnits)-1 {
		value /= 1000
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", value, byteUnits[unit])
}

// SizeString renders the task's total size, e.g. "1.23 GB".
func (t *Task) SizeString() string {
	return FormatBytes(t.Size)
}

// transfer returns the transfer section when present.
func (t *Task) transfer() *Transfer {
	if t.Additional == nil {
		return nil
	}
	return t.Additional.Transfer
}

// Progress returns the rounded completion percentage, or 0 when the
// transfer section is missing or the size is zero.
func (t *Task) Progress() float64 {
	tr := t.transfer()
	if tr == nil || t.Size == 0 {
		return 0
	}
	pct := math.Round(float64(tr.SizeDownloaded) / float64(t.Size) * 100)
	if math.IsNaN(pct) {
		return 0
	}
	return pct
}

// SpeedString renders the current transfer rate: download speed while
// downloading, upload speed while seeding, empty otherwise or when the
// rate is zero.
func (t *Task) SpeedString() string {
	if t.Status != StatusDownloading && t.Status != StatusSeeding {
		return ""
	}
	tr := t.transfer()
	if tr == nil {
		return ""
	}

	var speed int64
	switch t.Status {
	case StatusDownloading:
		speed = tr.SpeedDownload
	case StatusSeeding:
		speed = tr.SpeedUpload
	}
	if speed <= 0 {
		return ""
	}
	return FormatBytes(speed) + "/s"
}

// ETASeconds estimates the remaining download time in seconds. The
// second return is false when the task is not downloading or carries no
// transfer data; -1 means downloading at zero speed (unknown ETA).
func (t *Task) ETASeconds() (int64, bool) {
	if t.Status != StatusDownloading {
		return 0, false
	}
	tr := t.transfer()
	if tr == nil {
		return 0, false
	}
	if tr.SpeedDownload == 0 {
		return -1, true
	}
	remaining := float64(t.Size) - float64(tr.SizeDownloaded)
	return int64(math.Floor(remaining / float64(tr.SpeedDownload))), true
}

// Ratio returns uploaded/downloaded, or 0 when nothing was downloaded.
func (t *Task) Ratio() float64 {
	tr := t.transfer()
	if tr == nil || tr.SizeDownloaded == 0 {
		return 0
	}
	return float64(tr.SizeUploaded) / float64(tr.SizeDownloaded)
}

// FormatETA renders a second count as a coarse human duration:
// "45 s", "3 m 20 s", "3 h 28 m", "2 d 1 h 30 m". Negative means the
// remaining time is unknown.
func FormatETA(seconds int64) string {
	switch {
	case seconds < 0:
		return "Unknown"
	case seconds < 60:
		return fmt.Sprintf("%d s", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d m %d s", seconds/60, seconds%60)
	case seconds < 86400:
		return fmt.Sprintf("%d h %d m", seconds/3600, seconds%3600/60)
	default:
		return fmt.Sprintf("%d d %d h %d m", seconds/86400, seconds%86400/3600, seconds%3600/60)
	}
}

package model

// Host is a media host reachable over the command channel. The load fields
// are refreshed by an external agent and only read here (host selection on
// folder creation)
type Host struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Address string `gorm:"not null" json:"address"`
	SSHPort int    `gorm:"default:22" json:"ssh_port"`
	Active  bool   `gorm:"default:true;index" json:"active"`

	ActiveStreams int     `json:"active_streams"`
	CPULoad       float64 `json:"cpu_load"`
}

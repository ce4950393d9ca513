package domain

import (
	"time"
)

// OprLog records one successful mutating call against the back-office API.
type OprLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OprIp     string    `gorm:"size:64" json:"opr_ip"`
	OptAction string    `gorm:"size:64;index" json:"opt_action"`
	OptTarget string    `gorm:"size:200" json:"opt_target"`
	OptDesc   string    `gorm:"size:1024" json:"opt_desc"`
	OptTime   time.Time `gorm:"index" json:"opt_time"`
}

// TableName Specify table name
func (OprLog) TableName() string {
	return "opr_log"
}

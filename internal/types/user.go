package types

import (
  "time"
)

type User struct {
  ID                  uint                      `gorm:"primaryKey;autoIncrement" json:"id"`
  Username            string                    `gorm:"uniqueIndex;not null;size:50;column:username" json:"username"`
  Email               string                    `gorm:"uniqueIndex;not null;size:255;column:email" json:"email"`
  Password            string                    `gorm:"not null;column:password" json:"-"`

  CreatedAt           time.Time                 `gorm:"not null;autoCreateTime:false" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null;autoUpdateTime:false" json:"updatedAt"`
}

func (User) TableName() string {
  return "user"
}

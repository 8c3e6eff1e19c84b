package models

import "time"

// Subscription is a directed follow from User to Author.
type Subscription struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscription_pair"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AuthorID  uint      `gorm:"not null;index;uniqueIndex:idx_subscription_pair;check:chk_subscriptions_no_self,user_id <> author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// Favorite is a user's bookmark of a recipe.
type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_pair"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:idx_favorite_pair"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// ShoppingCart holds the recipes whose ingredients go on a user's shopping list.
type ShoppingCart struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_shopping_cart_pair"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:idx_shopping_cart_pair"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TableName keeps the singular table name used by the API.
func (ShoppingCart) TableName() string {
	return "shopping_cart"
}

// All lists every model handled by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Tag{},
		&Ingredient{},
		&Recipe{},
		&RecipeIngredient{},
		&Subscription{},
		&Favorite{},
		&ShoppingCart{},
	}
}

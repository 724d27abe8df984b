package entities

import "time"

// Book represents a catalog item. Catalog management owns writes; the search and
// analysis pipelines only read books.
type Book struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Author       string    `json:"author" db:"author"`
	Description  string    `json:"description,omitempty" db:"description"`
	CategoryID   string    `json:"category_id" db:"category_id"`
	CategoryName string    `json:"category_name,omitempty" db:"-"`
	Price        int64     `json:"price" db:"price"` // smallest currency unit
	Rating       float64   `json:"rating" db:"rating"`
	SalesCount   int       `json:"sales_count" db:"sales_count"`
	Embedding    []float32 `json:"-" db:"-"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Category is an entry of the genre vocabulary offered to the query classifier.
type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// SalesFact is a per-book aggregate of sold quantities over a time window.
type SalesFact struct {
	BookID     string `json:"book_id" db:"book_id"`
	SalesCount int    `json:"sales_count" db:"sales_count"`
	Revenue    int64  `json:"revenue" db:"revenue"`
}

// SoldItem is the flattened input of the statistical analysis: catalog metadata joined
// with the sales aggregate of one window. Missing numeric fields are zero.
type SoldItem struct {
	BookID       string  `json:"book_id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	CategoryName string  `json:"category_name,omitempty"`
	Price        int64   `json:"price"`
	Rating       float64 `json:"rating"`
	SalesCount   int     `json:"sales_count"`
	Revenue      int64   `json:"revenue"`
}

// NewSoldItem joins a book with its sales aggregate.
func NewSoldItem(book *Book, fact SalesFact) SoldItem {
	item := SoldItem{
		BookID:     fact.BookID,
		SalesCount: fact.SalesCount,
		Revenue:    fact.Revenue,
	}
	if book != nil {
		item.Title = book.Title
		item.Author = book.Author
		item.CategoryName = book.CategoryName
		item.Price = book.Price
		item.Rating = book.Rating
	}
	return item
}

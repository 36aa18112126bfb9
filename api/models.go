package api

// Address is the postal address of an account. Provider-originated accounts
// send empty placeholders.
type Address struct {
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	Road         string `json:"road"`
	LinkAddress  string `json:"linkAddress"`
}

// RegisterRequest is the body of the sign-up endpoint.
type RegisterRequest struct {
	Username        string  `json:"username" validate:"required"`
	PhoneNumber     string  `json:"phoneNumber"`
	Address         Address `json:"address"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=4"`
	ConfirmPassword string  `json:"confirmPassword" validate:"eqfield=Password"`
	Profile         string  `json:"profile"`
}

// Account is the provisioned account returned by sign-up. It carries no token.
type Account struct {
	UUID     string `json:"uuid,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Profile  string `json:"profile,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body of a successful login. AccessToken may be empty
// when the backend accepted the call but issued no session.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
}

// Message is a plain acknowledgement such as the email verification result.
type Message struct {
	Message string `json:"message"`
}

type ComputerSpec struct {
	Processor  string `json:"processor"`
	RAM        string `json:"ram"`
	Storage    string `json:"storage"`
	GPU        string `json:"gpu"`
	OS         string `json:"os"`
	ScreenSize string `json:"screenSize"`
	Battery    string `json:"battery"`
}

type ColorOption struct {
	Color  string   `json:"color"`
	Images []string `json:"images"`
}

// Product is a catalog entry as returned by the backend.
type Product struct {
	UUID          string        `json:"uuid" yaml:"uuid"`
	Name          string        `json:"name" yaml:"name"`
	Description   string        `json:"description" yaml:"description"`
	StockQuantity int           `json:"stockQuantity" yaml:"stockQuantity"`
	PriceIn       float64       `json:"priceIn" yaml:"priceIn"`
	PriceOut      float64       `json:"priceOut" yaml:"priceOut"`
	Discount      float64       `json:"discount" yaml:"discount"`
	Thumbnail     string        `json:"thumbnail" yaml:"thumbnail"`
	Images        []string      `json:"images,omitempty" yaml:"images,omitempty"`
	Color         []ColorOption `json:"color,omitempty" yaml:"color,omitempty"`
	ComputerSpec  *ComputerSpec `json:"computerSpec,omitempty" yaml:"computerSpec,omitempty"`
	Availability  bool          `json:"availability" yaml:"availability"`
}

// ProductPage is one page of the catalog listing.
type ProductPage struct {
	Content       []Product `json:"content"`
	TotalElements int       `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
}

// ProductInput is the body of product create and update calls.
type ProductInput struct {
	Name          string        `json:"name" validate:"required"`
	Description   string        `json:"description" validate:"required"`
	StockQuantity int           `json:"stockQuantity" validate:"gt=0"`
	PriceIn       float64       `json:"priceIn" validate:"gt=0"`
	PriceOut      float64       `json:"priceOut" validate:"gt=0"`
	Thumbnail     string        `json:"thumbnail" validate:"required"`
	ComputerSpec  ComputerSpec  `json:"computerSpec"`
	Discount      float64       `json:"discount" validate:"gte=0,lte=100"`
	Color         []ColorOption `json:"color"`
	Availability  bool          `json:"availability"`
	Images        []string      `json:"images"`
	CategoryUUID  string        `json:"categoryUuid" validate:"omitempty,uuid"`
	SupplierUUID  string        `json:"supplierUuid" validate:"omitempty,uuid"`
	BrandUUID     string        `json:"brandUuid" validate:"omitempty,uuid"`
}

// Catalog defaults the admin form attaches to every product it submits.
const (
	DefaultDiscount     = 15
	DefaultCategoryUUID = "dc071830-ce8a-40e2-ad51-3c1adeeb02cb"
	DefaultSupplierUUID = "0980127a-dc6d-487d-b166-957bcda2540d"
	DefaultBrandUUID    = "8265f3c7-9aea-498c-88b2-9e1bacb4f716"
	notAvailable        = "N/A"
)

// NewProductInput builds the product body the admin form sends: the editable
// fields plus placeholder specs, a single colour entry and the thumbnail as the
// only image.
func NewProductInput(name, description string, stock int, priceIn, priceOut float64, thumbnail string) ProductInput {
	return ProductInput{
		Name:          name,
		Description:   description,
		StockQuantity: stock,
		PriceIn:       priceIn,
		PriceOut:      priceOut,
		Thumbnail:     thumbnail,
		ComputerSpec: ComputerSpec{
			Processor:  notAvailable,
			RAM:        notAvailable,
			Storage:    notAvailable,
			GPU:        notAvailable,
			OS:         notAvailable,
			ScreenSize: notAvailable,
			Battery:    notAvailable,
		},
		Discount:     DefaultDiscount,
		Color:        []ColorOption{{Color: "", Images: []string{thumbnail}}},
		Availability: true,
		Images:       []string{thumbnail},
		CategoryUUID: DefaultCategoryUUID,
		SupplierUUID: DefaultSupplierUUID,
		BrandUUID:    DefaultBrandUUID,
	}
}

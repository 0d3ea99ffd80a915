package domain

// OrderStatus represents the delivery lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPicked    OrderStatus = "PICKED"
	OrderStatusArriving  OrderStatus = "ARRIVING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPicked,
		OrderStatusArriving,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid. The forward chain
// never skips a state; DELIVERED and CANCELLED are terminal.
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusConfirmed ||
			newStatus == OrderStatusCancelled
	case OrderStatusConfirmed:
		return newStatus == OrderStatusPicked ||
			newStatus == OrderStatusCancelled
	case OrderStatusPicked:
		return newStatus == OrderStatusArriving
	case OrderStatusArriving:
		return newStatus == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are permitted
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsCancellable reports whether a cancellation request may still be
// accepted. Once a partner has picked the order up it is in transit and
// can no longer be cancelled.
func (s OrderStatus) IsCancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// IsTrackable reports whether the live location feed applies
func (s OrderStatus) IsTrackable() bool {
	return s == OrderStatusPicked || s == OrderStatusArriving
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// OrderType distinguishes grocery orders from print-shop orders
type OrderType string

const (
	OrderTypeStandard OrderType = "STANDARD"
	OrderTypePrint    OrderType = "PRINT"
)

func (t OrderType) IsValid() bool {
	return t == OrderTypeStandard || t == OrderTypePrint
}

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "COD"
	PaymentMethodRazorpay PaymentMethod = "RAZORPAY"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodRazorpay
}

// PaymentStatus tracks settlement of an order's payment
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Role classifies an account and gates which operations it may perform
type Role string

const (
	RoleCustomer        Role = "CUSTOMER"
	RoleBusiness        Role = "BUSINESS"
	RoleAdmin           Role = "ADMIN"
	RoleDeliveryPartner Role = "DELIVERY_PARTNER"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleBusiness, RoleAdmin, RoleDeliveryPartner:
		return true
	default:
		return false
	}
}

// IsShopper reports whether the role owns a cart and places orders
func (r Role) IsShopper() bool {
	return r == RoleCustomer || r == RoleBusiness
}

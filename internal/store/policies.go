package store

// seedPolicies are the official Bookly policy documents. Tool answers
// about policy quote these verbatim rather than relying on model
// general knowledge.
var seedPolicies = []Policy{
	{
		Type:  "return",
		Title: "Return Policy",
		Content: `Bookly Return Policy

ELIGIBILITY:
- Returns accepted within 30 days of delivery date
- Books must be in original condition (unopened for sealed items)
- Digital books and ebooks are non-returnable
- Textbooks with access codes are non-returnable if code has been used

PROCESS:
1. Contact customer support to initiate a return
2. Receive a prepaid return shipping label via email
3. Pack the book securely and ship within 7 days
4. Refund processed within 5-7 business days after receipt

SHIPPING COSTS:
- Free return shipping for defective or incorrect items
- Customer pays $4.99 return shipping for change-of-mind returns
- Original shipping costs are non-refundable

EXCEPTIONS:
- Items damaged during shipping: Full refund including shipping
- Wrong item received: Full refund plus free expedited shipping for correct item
- Defective products: Full refund or replacement at customer's choice

For questions, contact support@bookly.com or call 1-800-BOOKLY.`,
	},
	{
		Type:  "shipping",
		Title: "Shipping Policy",
		Content: `Bookly Shipping Policy

SHIPPING METHODS & TIMES:
- Standard Shipping (5-7 business days): $4.99
- Express Shipping (2-3 business days): $9.99
- Overnight Shipping (1 business day): $19.99

FREE SHIPPING:
- Standard shipping is FREE on orders over $35
- Free shipping applies to US addresses only

PROCESSING TIME:
- Orders placed before 2 PM EST ship same business day
- Orders placed after 2 PM EST ship next business day
- Processing may take 1-2 additional days during peak seasons

TRACKING:
- Tracking number provided via email once shipped
- Track your order at bookly.com/track or carrier website

DELIVERY ISSUES:
- Package not received: Contact us within 14 days of expected delivery
- Damaged in transit: Take photos and contact us within 48 hours
- Wrong address: Customer responsible for orders shipped to incorrect address provided`,
	},
	{
		Type:  "refund",
		Title: "Refund Policy",
		Content: `Bookly Refund Policy

REFUND TIMELINE:
- Refunds processed within 5-7 business days after return received
- Credit card refunds may take 1-2 billing cycles to appear
- Store credit issued within 24 hours of return approval

REFUND METHODS:
- Original payment method (credit card, debit card)
- Store credit (if preferred, includes 10% bonus)
- PayPal refunds processed within 3-5 business days

REFUND AMOUNTS:
- Full refund: Item cost minus any applicable return shipping
- Partial refund: May apply if item is damaged or not in original condition
- Shipping costs: Non-refundable except for our errors

STORE CREDIT:
- Never expires
- Can be combined with other promotions
- Transferable with customer service approval

For expedited refund processing, contact customer support.`,
	},
	{
		Type:  "privacy",
		Title: "Privacy Policy",
		Content: `Bookly Privacy Policy (Summary)

INFORMATION WE COLLECT:
- Account information (name, email, shipping address)
- Order history and preferences
- Payment information (processed securely, not stored)

HOW WE USE YOUR DATA:
- Process orders and provide customer service
- Send order updates and shipping notifications
- Personalize book recommendations
- Send marketing emails (with your consent)

DATA PROTECTION:
- SSL encryption for all transactions
- No selling of personal data to third parties
- Compliant with CCPA and GDPR

YOUR RIGHTS:
- Access your personal data
- Request data deletion
- Opt out of marketing communications

For full privacy policy, visit bookly.com/privacy
Contact: privacy@bookly.com`,
	},
	{
		Type:  "payment",
		Title: "Payment Policy",
		Content: `Bookly Payment Policy

ACCEPTED PAYMENT METHODS:
- Credit Cards: Visa, MasterCard, American Express, Discover
- Debit Cards: With Visa/MasterCard logo
- PayPal
- Apple Pay / Google Pay
- Bookly Gift Cards
- Store Credit

PAYMENT SECURITY:
- All transactions encrypted with 256-bit SSL
- PCI DSS compliant
- No credit card information stored on our servers

BILLING:
- Payment charged when order ships
- Pre-orders charged when item becomes available

PAYMENT ISSUES:
- Declined card: We'll email you to update payment
- Fraudulent charges: Report within 60 days for investigation
- Price match: Contact us within 14 days of purchase

GIFT CARDS:
- No expiration date
- Cannot be redeemed for cash
- Lost cards can be replaced with proof of purchase`,
	},
	{
		Type:  "account",
		Title: "Account Policy",
		Content: `Bookly Account Policy

ACCOUNT CREATION:
- Free to create and maintain
- One account per email address
- Must be 18+ or have parental consent

ACCOUNT FEATURES:
- Save shipping addresses
- View order history
- Track shipments
- Manage preferences

PASSWORD REQUIREMENTS:
- Minimum 8 characters
- At least one number
- At least one uppercase letter
- Password reset via email only

ACCOUNT SECURITY:
- We never ask for password via email or phone
- Review login history in account settings
- Report suspicious activity immediately

ACCOUNT DELETION:
- Request via account settings or customer support
- Order history retained for 7 years (legal requirement)
- Personal data deleted within 30 days

For account assistance: support@bookly.com`,
	},
}

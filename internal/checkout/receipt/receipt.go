package receipt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-raffle/internal/models"
)

// Generator renders an entry into an encrypted QR receipt. Fulfillment staff
// scan it to verify a claimed prize belongs to the entry presenting it.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

type payload struct {
	EntryID       string  `json:"entry_id"`
	CompetitionID string  `json:"competition_id"`
	UserID        string  `json:"user_id"`
	TicketStart   int64   `json:"ticket_start"`
	TicketEnd     int64   `json:"ticket_end"`
	AmountPaid    float64 `json:"amount_paid"`
}

func (g *Generator) GenerateEntryReceipt(entry models.Entry) ([]byte, error) {
	data, err := json.Marshal(payload{
		EntryID:       entry.ID,
		CompetitionID: entry.CompetitionID,
		UserID:        entry.UserID,
		TicketStart:   entry.TicketStart,
		TicketEnd:     entry.TicketEnd,
		AmountPaid:    entry.AmountPaid,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecryptReceipt reverses GenerateEntryReceipt's encryption for the scanner
// verification path.
func (g *Generator) DecryptReceipt(encoded string) (*models.Entry, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(g.secret)
	if err != nil {
		return nil, err
	}
	if len(raw) < aes.BlockSize {
		return nil, io.ErrUnexpectedEOF
	}

	iv := raw[:aes.BlockSize]
	data := raw[aes.BlockSize:]
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, data)

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &models.Entry{
		ID:            p.EntryID,
		CompetitionID: p.CompetitionID,
		UserID:        p.UserID,
		TicketStart:   p.TicketStart,
		TicketEnd:     p.TicketEnd,
		AmountPaid:    p.AmountPaid,
	}, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

package planner

import (
	"fmt"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/types"
)

// ruleDelimiter separates retrieved chunks inside the prompt so the model
// can tell where one rule ends and the next begins.
const ruleDelimiter = "\n\n---\n"

const jsonExample = `{
  "breakfast": {
    "time": "06:00-07:00",
    "menu_name": "nama menu original (BUKAN template)",
    "ingredients": [
      "Beras putih (AR001, 50g)",
      "Ayam dada (AY001, 30g)",
      "Wortel (SA002, 20g)"
    ],
    "portion": "150 ml / 120g",
    "instructions": [
      "Masak beras sampai lunak",
      "Rebus ayam potong kecil",
      "Campur dengan wortel yang sudah dihaluskan"
    ],
    "nutrition": {
      "energy_kcal": 145,
      "protein_g": 6.2,
      "carbs_g": 20.5,
      "fat_g": 2.8
    }
  },
  "morning_snack": { "...": "struktur sama seperti breakfast" },
  "lunch": { "...": "struktur sama seperti breakfast" },
  "afternoon_snack": { "...": "struktur sama seperti breakfast" },
  "dinner": { "...": "struktur sama seperti breakfast" },
  "daily_summary": {
    "total_energy_kcal": 470,
    "total_protein_g": 21.0,
    "total_carbs_g": 71.7,
    "total_fat_g": 8.0,
    "akg_requirement": "AKG harian dari KONTEKS ATURAN",
    "akg_compliance": "Evaluasi kepatuhan MKM/TID dan AKG harian"
  },
  "recommendation": "Saran variasi bahan untuk hari berikutnya"
}`

// ComposePrompt builds the full instruction block for one plan generation.
// Pure string construction: identical inputs produce an identical prompt.
// Ingredient data is never inlined; the model reads it from the attached
// composition file.
func ComposePrompt(profile types.BabyProfile, ruleChunks []string) string {
	var b strings.Builder

	b.WriteString("Kamu adalah AI perencana menu MPASI bayi yang SANGAT TELITI dan KREATIF.\n\n")

	b.WriteString("INFORMASI BAYI:\n")
	fmt.Fprintf(&b, "- Usia: %d bulan\n", profile.AgeMonths)
	if profile.WeightKg > 0 {
		fmt.Fprintf(&b, "- Berat Badan: %g kg\n", profile.WeightKg)
	}
	if profile.HeightCm > 0 {
		fmt.Fprintf(&b, "- Tinggi Badan: %g cm\n", profile.HeightCm)
	}
	if profile.Gender != "" {
		fmt.Fprintf(&b, "- Jenis Kelamin: %s\n", profile.Gender)
	}
	if profile.Residence != "" {
		fmt.Fprintf(&b, "- Tempat Tinggal: %s\n", profile.Residence)
	}
	if len(profile.Allergies) > 0 {
		fmt.Fprintf(&b, "- PENTING: Bayi alergi terhadap: %s. Hindari bahan ini.\n", strings.Join(profile.Allergies, ", "))
	} else {
		b.WriteString("- Tidak ada alergi yang dilaporkan.\n")
	}

	b.WriteString("\n==============================================\n")
	b.WriteString("KONTEKS ATURAN MPASI DAN AKG (WAJIB DIIKUTI)\n")
	b.WriteString("==============================================\n")
	if len(ruleChunks) > 0 {
		b.WriteString(strings.Join(ruleChunks, ruleDelimiter))
	} else {
		b.WriteString("(tidak ada aturan relevan yang ditemukan — gunakan prinsip MPASI umum WHO)")
	}
	b.WriteString("\n")

	b.WriteString("\n==============================================\n")
	b.WriteString("DATA BAHAN MAKANAN\n")
	b.WriteString("==============================================\n")
	b.WriteString("[!] FILE komposisi bahan makanan telah DILAMPIRKAN. Gunakan data dari file ini sebagai SATU-SATUNYA sumber informasi bahan makanan (name, code, kcal, prot_g, fat_g, carb_g, bdd_percent).\n")

	b.WriteString("\n==============================================\n")
	b.WriteString("TUGAS: BUAT RENCANA MENU MPASI ORIGINAL UNTUK 1 HARI\n")
	b.WriteString("==============================================\n")
	b.WriteString("LANGKAH-LANGKAH WAJIB:\n")
	b.WriteString("1. ANALISIS ATURAN: penuhi syarat ADEKUAT dan TEPAT WAKTU, kriteria MINIMUM KERAGAMAN MAKANAN (MKM) dan KONSUMSI TELUR/IKAN/DAGING (TID), serta batasi GULA/GARAM sesuai KONTEKS ATURAN.\n")
	fmt.Fprintf(&b, "2. PILIH BAHAN DARI FILE TERLAMPIR: sertakan Nama Bahan, KODE, dan Jumlah (gram/ml) untuk setiap bahan dalam format string seperti contoh: \"Nama Bahan (KODE, jumlah)\". Hindari bahan alergen: %s.\n", allergyList(profile.Allergies))
	fmt.Fprintf(&b, "3. BUAT MENU ORIGINAL: kombinasi kreatif, tekstur dan porsi sesuai usia %d bulan (dari KONTEKS ATURAN).\n", profile.AgeMonths)
	b.WriteString("4. ISI NILAI NUTRISI sebagai angka perkiraan; nilai final dihitung ulang oleh sistem.\n")
	b.WriteString("5. VALIDASI & FORMAT: output HARUS JSON VALID sesuai contoh di bawah.\n")

	b.WriteString("\nLARANGAN KETAT:\n")
	b.WriteString("❌ JANGAN gunakan bahan APAPUN yang tidak ada di file terlampir.\n")
	b.WriteString("❌ JANGAN mengarang KODE bahan.\n")
	b.WriteString("❌ JANGAN gunakan aturan yang tidak ada di KONTEKS ATURAN.\n")
	b.WriteString("❌ JANGAN tulis rumus aritmetika dalam nilai nutrisi JSON — hanya angka.\n")
	b.WriteString("❌ JANGAN gunakan format objek untuk ingredients — gunakan STRING seperti contoh.\n")
	b.WriteString("❌ JANGAN bungkus hasil JSON dalam array atau markdown fence.\n")

	b.WriteString("\nFORMAT RESPONSE (JSON VALID - COPY STRUKTUR INI PERSIS):\n")
	b.WriteString(jsonExample)
	b.WriteString("\n")

	return b.String()
}

func allergyList(allergies []string) string {
	if len(allergies) == 0 {
		return "tidak ada"
	}
	return strings.Join(allergies, ", ")
}
